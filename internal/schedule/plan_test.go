package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeertmans/jinglebox/internal/model"
)

func testSettings() Settings {
	return Settings{
		FirstGame:     time.Date(2023, 8, 13, 9, 0, 0, 0, time.UTC),
		LastGame:      time.Date(2023, 8, 13, 13, 0, 0, 0, time.UTC),
		GameDuration:  30 * time.Minute,
		BreakDuration: 5 * time.Minute,
	}
}

func TestBuildGames_Spacing(t *testing.T) {
	s := testSettings()
	now := time.Date(2023, 8, 13, 8, 0, 0, 0, time.UTC)

	games := BuildGames(s, now)
	require.NotEmpty(t, games)

	// 9:00, 9:35, 10:10, ... strictly before 13:00
	assert.Equal(t, s.FirstGame, games[0].Start)
	for i := 1; i < len(games); i++ {
		assert.Equal(t, 35*time.Minute, games[i].Start.Sub(games[i-1].Start))
	}
	last := games[len(games)-1]
	assert.True(t, last.Start.Before(s.LastGame))
	assert.False(t, last.Start.Add(35*time.Minute).Before(s.LastGame))
}

func TestBuildGames_DropsPastGames(t *testing.T) {
	s := testSettings()
	now := time.Date(2023, 8, 13, 9, 40, 0, 0, time.UTC)

	games := BuildGames(s, now)
	require.NotEmpty(t, games)

	// 9:00 and 9:35 already started; next is 10:10
	assert.Equal(t, time.Date(2023, 8, 13, 10, 10, 0, 0, time.UTC), games[0].Start)
}

func TestBuildGames_NoneAfterLast(t *testing.T) {
	s := testSettings()
	now := time.Date(2023, 8, 13, 14, 0, 0, 0, time.UTC)

	assert.Empty(t, BuildGames(s, now))
}

func TestBuildGames_UnsetSettings(t *testing.T) {
	now := time.Now()

	assert.Empty(t, BuildGames(Settings{}, now))

	s := testSettings()
	s.GameDuration = 0
	assert.Empty(t, BuildGames(s, now))
}

func TestBuildPlan_AnchorsAndOffsets(t *testing.T) {
	now := time.Date(2023, 8, 13, 8, 0, 0, 0, time.UTC)
	game := model.Game{
		Start:    time.Date(2023, 8, 13, 9, 0, 0, 0, time.UTC),
		Duration: 30 * time.Minute,
	}

	jingles := []model.Jingle{
		{Name: "kickoff", File: "/s/a.ogg", Anchor: model.AnchorStart},
		{Name: "half warning", File: "/s/b.ogg", Anchor: model.AnchorHalf, Offset: 2 * time.Minute},
		{Name: "final", File: "/s/c.ogg", Anchor: model.AnchorEnd},
	}

	plan := BuildPlan(jingles, []model.Game{game}, now)
	require.Len(t, plan, 3)

	assert.Equal(t, "kickoff", plan[0].Jingle.Name)
	assert.Equal(t, game.Start, plan[0].FireTime)
	assert.Equal(t, "half warning", plan[1].Jingle.Name)
	assert.Equal(t, game.Start.Add(17*time.Minute), plan[1].FireTime)
	assert.Equal(t, "final", plan[2].Jingle.Name)
	assert.Equal(t, game.Start.Add(30*time.Minute), plan[2].FireTime)
}

func TestBuildPlan_SortedAscending(t *testing.T) {
	s := testSettings()
	now := time.Date(2023, 8, 13, 8, 0, 0, 0, time.UTC)

	jingles := []model.Jingle{
		{Name: "end", File: "/s/end.ogg", Anchor: model.AnchorEnd},
		{Name: "start", File: "/s/start.ogg", Anchor: model.AnchorStart},
	}

	plan := BuildPlan(jingles, BuildGames(s, now), now)
	require.NotEmpty(t, plan)

	for i := 1; i < len(plan); i++ {
		assert.False(t, plan[i].FireTime.Before(plan[i-1].FireTime),
			"plan must be sorted ascending")
	}
}

func TestBuildPlan_SkipsPastFireTimes(t *testing.T) {
	game := model.Game{
		Start:    time.Date(2023, 8, 13, 9, 0, 0, 0, time.UTC),
		Duration: 30 * time.Minute,
	}
	// Halfway through the game: start anchor is past, half and end remain
	now := game.Start.Add(10 * time.Minute)

	jingles := []model.Jingle{
		{Name: "start", File: "/s/a.ogg", Anchor: model.AnchorStart},
		{Name: "half", File: "/s/b.ogg", Anchor: model.AnchorHalf},
		{Name: "end", File: "/s/c.ogg", Anchor: model.AnchorEnd},
	}

	plan := BuildPlan(jingles, []model.Game{game}, now)
	require.Len(t, plan, 2)
	assert.Equal(t, "half", plan[0].Jingle.Name)
	assert.Equal(t, "end", plan[1].Jingle.Name)
}

func TestNextGame(t *testing.T) {
	assert.Nil(t, NextGame(nil))

	games := []model.Game{
		{Start: time.Date(2023, 8, 13, 10, 10, 0, 0, time.UTC)},
		{Start: time.Date(2023, 8, 13, 10, 45, 0, 0, time.UTC)},
	}
	next := NextGame(games)
	require.NotNil(t, next)
	assert.Equal(t, games[0].Start, next.Start)
}

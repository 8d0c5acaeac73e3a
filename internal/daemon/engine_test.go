package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeertmans/jinglebox/internal/config"
	"github.com/jeertmans/jinglebox/internal/model"
)

func testEngine(t *testing.T, cfg *config.Config, jingles []model.Jingle) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	// Keep tests away from PulseAudio and the session bus
	cfg.Duck.Enabled = false
	cfg.Notify.Enabled = false

	historyPath := filepath.Join(t.TempDir(), "history.jsonl")
	e, err := NewEngine(cfg, jingles, historyPath, nil)
	require.NoError(t, err)
	return e
}

func TestEngine_PlayNowMissingFileRecordsFailure(t *testing.T) {
	jingle := model.Jingle{Name: "Start horn", File: "/nonexistent/horn.ogg"}
	e := testEngine(t, nil, []model.Jingle{jingle})
	defer e.playLog.Close()

	err := e.PlayNow(context.Background(), "Start horn")
	require.Error(t, err)

	records := e.History().All()
	require.Len(t, records, 1)
	assert.Equal(t, model.OutcomeFailed, records[0].Outcome)
	assert.Equal(t, model.TriggerManual, records[0].Trigger)
	assert.Equal(t, "Start horn", records[0].Name)
	assert.NotEmpty(t, records[0].Error)
}

// refusingRunner simulates an unresponsive PulseAudio server.
type refusingRunner struct{}

func (refusingRunner) Run(context.Context, ...string) ([]byte, error) {
	return nil, errors.New("pactl: connection refused")
}

func TestEngine_DuckFailureRecordedOnPlay(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Notify.Enabled = false

	// Empty file: playback is a no-op, so only the duck outcome matters
	jingle := model.Jingle{Name: "Start horn"}

	historyPath := filepath.Join(t.TempDir(), "history.jsonl")
	e, err := NewEngine(cfg, []model.Jingle{jingle}, historyPath, nil)
	require.NoError(t, err)
	defer e.playLog.Close()

	e.ducker.SetRunner(refusingRunner{})

	require.NoError(t, e.PlayNow(context.Background(), "Start horn"))

	records := e.History().All()
	require.Len(t, records, 1)
	assert.Equal(t, model.OutcomePlayed, records[0].Outcome)
	assert.False(t, records[0].Ducked)
	assert.Contains(t, records[0].Error, "connection refused")
}

func TestEngine_FindJingle(t *testing.T) {
	jingles := []model.Jingle{
		{Name: "Start horn", File: "/tmp/horn.ogg"},
		{File: "/tmp/unnamed.ogg"},
	}
	e := testEngine(t, nil, jingles)
	defer e.playLog.Close()

	assert.NotNil(t, e.findJingle("start horn"))
	assert.NotNil(t, e.findJingle("/tmp/horn.ogg"))
	assert.NotNil(t, e.findJingle("Unnamed"))
	assert.Nil(t, e.findJingle("final whistle"))
}

func TestEngine_RebuildPlan(t *testing.T) {
	now := time.Now()
	cfg := config.DefaultConfig()
	cfg.Tournament.FirstGame = config.Time(now.Add(time.Hour))
	cfg.Tournament.LastGame = config.Time(now.Add(3 * time.Hour))
	cfg.Tournament.GameDuration = config.Duration(30 * time.Minute)
	cfg.Tournament.BreakDuration = config.Duration(5 * time.Minute)

	e := testEngine(t, cfg, []model.Jingle{{Name: "Start horn", File: "/tmp/horn.ogg"}})
	defer e.playLog.Close()

	e.rebuildPlan()

	games := e.Games()
	require.NotEmpty(t, games)
	assert.Equal(t, now.Add(time.Hour).Unix(), games[0].Start.Unix())

	pending := e.Scheduler().Pending()
	require.NotEmpty(t, pending)
	assert.Equal(t, "Start horn", pending[0].Jingle.DisplayName())
}

func TestEngine_Skip(t *testing.T) {
	now := time.Now()
	cfg := config.DefaultConfig()
	cfg.Tournament.FirstGame = config.Time(now.Add(time.Hour))
	cfg.Tournament.LastGame = config.Time(now.Add(2 * time.Hour))

	e := testEngine(t, cfg, []model.Jingle{{Name: "Start horn", File: "/tmp/horn.ogg"}})
	defer e.playLog.Close()

	e.rebuildPlan()
	before := len(e.Scheduler().Pending())
	require.Greater(t, before, 0)

	skipped := e.Skip()
	require.NotNil(t, skipped)
	assert.Len(t, e.Scheduler().Pending(), before-1)
}

func TestEngine_SkipEmptyPlan(t *testing.T) {
	e := testEngine(t, nil, nil)
	defer e.playLog.Close()

	assert.Nil(t, e.Skip())
}

func TestEngine_Reload(t *testing.T) {
	e := testEngine(t, nil, nil)
	defer e.playLog.Close()

	now := time.Now()
	cfg := config.DefaultConfig()
	cfg.Duck.Enabled = false
	cfg.Notify.Enabled = false
	cfg.Tournament.FirstGame = config.Time(now.Add(time.Hour))
	cfg.Tournament.LastGame = config.Time(now.Add(2 * time.Hour))

	e.Reload(cfg, []model.Jingle{{Name: "Start horn", File: "/tmp/horn.ogg"}})

	assert.Len(t, e.Jingles(), 1)
	assert.NotEmpty(t, e.Scheduler().Pending())
}

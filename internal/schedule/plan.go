// Package schedule computes jingle fire times and runs the playback timer.
package schedule

import (
	"sort"
	"time"

	"github.com/jeertmans/jinglebox/internal/config"
	"github.com/jeertmans/jinglebox/internal/model"
)

// Settings is the tournament grid input to the planner.
type Settings struct {
	FirstGame     time.Time
	LastGame      time.Time
	GameDuration  time.Duration
	BreakDuration time.Duration
}

// SettingsFromConfig extracts planner settings from the app configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FirstGame:     cfg.Tournament.FirstGame.Time(),
		LastGame:      cfg.Tournament.LastGame.Time(),
		GameDuration:  cfg.Tournament.GameDuration.Duration(),
		BreakDuration: cfg.Tournament.BreakDuration.Duration(),
	}
}

// BuildGames computes the remaining game grid. Games repeat every
// (game + break) from the first game; games that already started are
// dropped, and games start strictly before the last-game cutoff.
func BuildGames(s Settings, now time.Time) []model.Game {
	if s.FirstGame.IsZero() || s.LastGame.IsZero() || s.GameDuration <= 0 {
		return nil
	}

	spacing := s.GameDuration + s.BreakDuration
	if spacing <= 0 {
		return nil
	}

	start := s.FirstGame
	for start.Before(now) {
		start = start.Add(spacing)
	}

	var games []model.Game
	for start.Before(s.LastGame) {
		games = append(games, model.Game{Start: start, Duration: s.GameDuration})
		start = start.Add(spacing)
	}
	return games
}

// BuildPlan expands jingles across the game grid into absolute fire times,
// sorted ascending. Fire times not strictly in the future are dropped.
func BuildPlan(jingles []model.Jingle, games []model.Game, now time.Time) []model.PlannedJingle {
	var plan []model.PlannedJingle

	for _, g := range games {
		for _, j := range jingles {
			p := model.NewPlannedJingle(j, g)
			if !p.FireTime.After(now) {
				continue
			}
			plan = append(plan, p)
		}
	}

	sort.SliceStable(plan, func(i, k int) bool {
		return plan[i].FireTime.Before(plan[k].FireTime)
	})
	return plan
}

// NextGame returns the first game in the grid, or nil when none remain.
func NextGame(games []model.Game) *model.Game {
	if len(games) == 0 {
		return nil
	}
	g := games[0]
	return &g
}

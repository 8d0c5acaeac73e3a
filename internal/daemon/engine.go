// Package daemon wires the scheduler, audio player, ducking controller,
// play history and desktop notifications into one running engine. Both
// the headless run command and the TUI drive the same engine.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeertmans/jinglebox/internal/audio"
	"github.com/jeertmans/jinglebox/internal/config"
	"github.com/jeertmans/jinglebox/internal/duck"
	"github.com/jeertmans/jinglebox/internal/history"
	"github.com/jeertmans/jinglebox/internal/model"
	"github.com/jeertmans/jinglebox/internal/notify"
	"github.com/jeertmans/jinglebox/internal/schedule"
)

// Engine owns every running component of jinglebox.
type Engine struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	cfg     *config.Config
	jingles []model.Jingle
	games   []model.Game

	player    *audio.Player
	watcher   *audio.Watcher
	ducker    *duck.Controller
	notifier  *notify.Notifier
	playLog   *history.Log
	scheduler *schedule.Scheduler

	cancel  context.CancelFunc
	eventCh <-chan schedule.Event
	doneCh  chan struct{}
	running bool
}

// NewEngine builds an engine from loaded configuration. The history log
// is opened against the default history path unless historyPath overrides it.
func NewEngine(cfg *config.Config, jingles []model.Jingle, historyPath string, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if historyPath == "" {
		historyPath = config.HistoryPath()
	}

	persistence, err := history.NewJSONLPersistence(historyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	playLog := history.NewLog(persistence)
	if err := playLog.Hydrate(); err != nil {
		logger.Warn("failed to hydrate play history", "error", err)
	}

	player := audio.NewPlayer(logger)
	player.SetVolume(float64(cfg.Audio.Volume) / 100)

	e := &Engine{
		logger:    logger,
		cfg:       cfg,
		jingles:   jingles,
		player:    player,
		watcher:   audio.NewWatcher(player, logger),
		ducker:    duck.NewController(cfg.Duck, logger),
		notifier:  notify.NewNotifier(cfg.Notify.Enabled, logger),
		playLog:   playLog,
		scheduler: schedule.NewScheduler(cfg.Scheduler.Grace.Duration(), logger),
	}
	e.scheduler.SetFireHandler(e.handleFire)
	return e, nil
}

// Start builds the plan and starts the scheduler and audio watcher.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	e.running = true
	ctx, e.cancel = context.WithCancel(ctx)
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	e.rebuildPlan()

	for _, j := range e.Jingles() {
		e.watcher.Watch(j.File)
		if err := e.player.Preload(j.File); err != nil {
			e.logger.Warn("cannot preload jingle", "file", j.File, "error", err)
		}
	}

	if err := e.watcher.Start(ctx); err != nil {
		e.logger.Warn("failed to start audio watcher", "error", err)
	}

	e.eventCh = e.scheduler.Subscribe()
	go e.consumeEvents(ctx)

	return e.scheduler.Start(ctx)
}

// Stop shuts down every component.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	doneCh := e.doneCh
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.scheduler.Stop()
	e.watcher.Stop()
	<-doneCh

	if e.ducker.Holds() > 0 {
		if err := e.ducker.Release(context.Background()); err != nil {
			e.logger.Warn("failed to restore ducked volumes", "error", err)
		}
	}
	e.player.Close()
	e.notifier.Close()
	if err := e.playLog.Close(); err != nil {
		e.logger.Warn("failed to close play history", "error", err)
	}
}

// Reload applies a new configuration and jingle set, then rebuilds the plan.
func (e *Engine) Reload(cfg *config.Config, jingles []model.Jingle) {
	e.mu.Lock()
	e.cfg = cfg
	e.jingles = jingles
	e.mu.Unlock()

	e.player.SetVolume(float64(cfg.Audio.Volume) / 100)
	e.ducker.UpdateConfig(cfg.Duck)
	e.notifier.SetEnabled(cfg.Notify.Enabled)

	for _, j := range jingles {
		e.watcher.Watch(j.File)
	}

	e.rebuildPlan()
	e.logger.Info("configuration reloaded", "jingles", len(jingles))
}

// Scheduler exposes the scheduler for pause/resume and plan inspection.
func (e *Engine) Scheduler() *schedule.Scheduler { return e.scheduler }

// History exposes the play-history log.
func (e *Engine) History() *history.Log { return e.playLog }

// Jingles returns the loaded jingle definitions.
func (e *Engine) Jingles() []model.Jingle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Jingle, len(e.jingles))
	copy(out, e.jingles)
	return out
}

// Games returns the current game grid.
func (e *Engine) Games() []model.Game {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Game, len(e.games))
	copy(out, e.games)
	return out
}

// Config returns the active configuration.
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// JingleDuration returns the playback length of a jingle file, decoding
// and caching it on first use.
func (e *Engine) JingleDuration(file string) (time.Duration, error) {
	return e.player.Duration(file)
}

// PlayNow plays a jingle immediately, by name (case-insensitive) or by
// file path, with ducking, and records a manual play. Returns once
// playback has started.
func (e *Engine) PlayNow(ctx context.Context, nameOrFile string) error {
	jingle := e.findJingle(nameOrFile)
	if jingle == nil {
		jingle = &model.Jingle{File: nameOrFile}
	}
	return e.play(ctx, *jingle, model.TriggerManual, nil, nil)
}

// PlayNowAndWait plays a jingle immediately and blocks until playback
// completes or the context is cancelled.
func (e *Engine) PlayNowAndWait(ctx context.Context, nameOrFile string) error {
	jingle := e.findJingle(nameOrFile)
	if jingle == nil {
		jingle = &model.Jingle{File: nameOrFile}
	}

	done := make(chan struct{})
	if err := e.play(ctx, *jingle, model.TriggerManual, nil, func() { close(done) }); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Skip drops the next pending entry from the plan without playing it.
func (e *Engine) Skip() *model.PlannedJingle {
	next := e.scheduler.Next()
	if next == nil {
		return nil
	}

	pending := e.scheduler.Pending()
	remaining := make([]model.PlannedJingle, 0, len(pending))
	for _, entry := range pending {
		if entry.ID != next.ID {
			remaining = append(remaining, entry)
		}
	}
	e.scheduler.SetPlan(remaining)
	e.logger.Info("skipped jingle", "name", next.Jingle.DisplayName(), "fire_time", next.FireTime)
	return next
}

// findJingle matches a loaded jingle by name or file path.
func (e *Engine) findJingle(nameOrFile string) *model.Jingle {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for i := range e.jingles {
		if strings.EqualFold(e.jingles[i].DisplayName(), nameOrFile) ||
			e.jingles[i].File == nameOrFile {
			j := e.jingles[i]
			return &j
		}
	}
	return nil
}

// rebuildPlan recomputes the game grid and planned jingles from the
// current config and jingle set.
func (e *Engine) rebuildPlan() {
	e.mu.Lock()
	cfg := e.cfg
	jingles := make([]model.Jingle, len(e.jingles))
	copy(jingles, e.jingles)
	e.mu.Unlock()

	now := time.Now()
	games := schedule.BuildGames(schedule.SettingsFromConfig(cfg), now)
	plan := schedule.BuildPlan(jingles, games, now)

	e.mu.Lock()
	e.games = games
	e.mu.Unlock()

	e.scheduler.SetPlan(plan)
	e.logger.Info("schedule rebuilt", "games", len(games), "planned", len(plan))
}

// handleFire plays a scheduled jingle. Runs on its own goroutine.
func (e *Engine) handleFire(entry model.PlannedJingle) {
	err := e.play(context.Background(), entry.Jingle, model.TriggerSchedule, &entry, nil)
	if err != nil {
		e.logger.Error("scheduled jingle failed",
			"name", entry.Jingle.DisplayName(), "error", err)
	}
}

// play performs one jingle playback with ducking and history recording.
// planned is nil for manual plays; onDone, when set, is called after the
// jingle finishes.
func (e *Engine) play(ctx context.Context, jingle model.Jingle, trigger model.Trigger, planned *model.PlannedJingle, onDone func()) error {
	record := model.NewPlayRecord(jingle, trigger)
	if planned != nil {
		record.Planned = planned.FireTime.Unix()
	}

	ducked := false
	if e.ducker.Enabled() {
		if err := e.ducker.Duck(ctx); err != nil {
			e.logger.Warn("ducking failed, playing anyway", "error", err)
			record.Error = err.Error()
			e.notifier.DuckFailed(jingle.DisplayName(), err)
		} else {
			ducked = true
		}
	}
	record.Ducked = ducked

	release := func() {
		if ducked {
			if err := e.ducker.Release(context.Background()); err != nil {
				e.logger.Warn("failed to release duck", "error", err)
			}
		}
		if onDone != nil {
			onDone()
		}
	}

	if err := e.player.Play(jingle.File, release); err != nil {
		release()
		record.Outcome = model.OutcomeFailed
		record.Error = err.Error()
		e.appendRecord(record)
		e.notifier.JingleFailed(jingle.DisplayName(), err)
		return err
	}

	e.appendRecord(record)
	e.notifier.JinglePlayed(jingle.DisplayName())
	e.logger.Info("jingle playing",
		"name", jingle.DisplayName(), "trigger", trigger, "ducked", ducked)
	return nil
}

// consumeEvents records missed entries reported by the scheduler.
func (e *Engine) consumeEvents(ctx context.Context) {
	defer close(e.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-e.eventCh:
			if !ok {
				return
			}
			if event.Type != schedule.EventMissed {
				continue
			}
			record := model.NewPlayRecord(event.Entry.Jingle, model.TriggerSchedule)
			record.Planned = event.Entry.FireTime.Unix()
			record.Outcome = model.OutcomeMissed
			e.appendRecord(record)
			e.notifier.JingleMissed(event.Entry.Jingle.DisplayName())
		}
	}
}

func (e *Engine) appendRecord(record model.PlayRecord) {
	if err := e.playLog.Append(record); err != nil {
		e.logger.Warn("failed to record play", "name", record.Name, "error", err)
	}
}

// Package duck lowers the volume of other audio applications while a
// jingle plays, through the PulseAudio sink-input control surface.
package duck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jeertmans/jinglebox/internal/config"
)

// ErrAppNotFound is returned when no sink input matches the configured
// application name.
var ErrAppNotFound = errors.New("no audio stream matches the configured application")

// State tracks one ducked foreign stream.
type State struct {
	Index          int
	App            string
	OriginalVolume int // percent, captured before ducking
	DuckedVolume   int // percent, applied while ducked
	Active         bool
}

// Controller applies and releases ducking. Duck holds are reference
// counted: overlapping jingles restore volume only after the last one
// finishes.
type Controller struct {
	mu     sync.Mutex
	logger *slog.Logger
	runner Runner

	cfg config.DuckConfig

	// Streams currently ducked, by sink input index
	states map[int]*State

	// Number of jingles currently holding the duck
	holds int
}

// NewController creates a ducking controller driven by the pactl binary.
func NewController(cfg config.DuckConfig, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		logger: logger,
		runner: execRunner{},
		cfg:    cfg,
		states: make(map[int]*State),
	}
}

// SetRunner replaces the pactl runner. Used by tests.
func (c *Controller) SetRunner(runner Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runner = runner
}

// UpdateConfig replaces the ducking configuration.
// Streams already ducked keep their captured restore volume.
func (c *Controller) UpdateConfig(cfg config.DuckConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.logger.Debug("ducking config updated", "app", cfg.App, "enabled", cfg.Enabled)
}

// Enabled reports whether ducking is configured on.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Enabled
}

// Duck lowers matching streams to the ducked volume. The first hold
// captures each stream's original volume; further holds only bump the
// reference count.
func (c *Controller) Duck(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.Enabled {
		return nil
	}

	c.holds++
	if c.holds > 1 {
		return nil
	}

	inputs, err := listSinkInputs(ctx, c.runner)
	if err != nil {
		c.holds--
		return err
	}

	matched := 0
	for _, input := range inputs {
		name := input.appName()
		if !strings.Contains(strings.ToLower(name), strings.ToLower(c.cfg.App)) {
			continue
		}
		matched++

		original, err := input.volumePercent()
		if err != nil {
			c.logger.Warn("cannot read stream volume, skipping", "index", input.Index, "error", err)
			continue
		}

		if err := setVolumePercent(ctx, c.runner, input.Index, c.cfg.DuckedVolume); err != nil {
			c.logger.Warn("failed to duck stream", "index", input.Index, "app", name, "error", err)
			continue
		}

		c.states[input.Index] = &State{
			Index:          input.Index,
			App:            name,
			OriginalVolume: original,
			DuckedVolume:   c.cfg.DuckedVolume,
			Active:         true,
		}
		c.logger.Info("ducked stream",
			"index", input.Index, "app", name,
			"from", original, "to", c.cfg.DuckedVolume)
	}

	if matched == 0 {
		c.holds--
		return fmt.Errorf("%w: %q", ErrAppNotFound, c.cfg.App)
	}
	return nil
}

// Release drops one duck hold; the last release restores every stream to
// its captured original volume.
func (c *Controller) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.holds == 0 {
		return nil
	}
	c.holds--
	if c.holds > 0 {
		return nil
	}

	var firstErr error
	for index, state := range c.states {
		if !state.Active {
			continue
		}
		if err := setVolumePercent(ctx, c.runner, index, state.OriginalVolume); err != nil {
			c.logger.Warn("failed to restore stream volume",
				"index", index, "app", state.App, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.logger.Info("restored stream",
			"index", index, "app", state.App, "to", state.OriginalVolume)
		delete(c.states, index)
	}
	return firstErr
}

// SetAppVolume sets all matching streams to the given percentage without
// touching duck state. Used by the manual duck command.
func (c *Controller) SetAppVolume(ctx context.Context, percent int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inputs, err := listSinkInputs(ctx, c.runner)
	if err != nil {
		return err
	}

	matched := 0
	for _, input := range inputs {
		name := input.appName()
		if !strings.Contains(strings.ToLower(name), strings.ToLower(c.cfg.App)) {
			continue
		}
		matched++
		if err := setVolumePercent(ctx, c.runner, input.Index, percent); err != nil {
			return err
		}
		c.logger.Info("set stream volume", "index", input.Index, "app", name, "to", percent)
	}

	if matched == 0 {
		return fmt.Errorf("%w: %q", ErrAppNotFound, c.cfg.App)
	}
	return nil
}

// States returns the currently tracked duck states, ordered by stream index.
func (c *Controller) States() []State {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]State, 0, len(c.states))
	for _, s := range c.states {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Holds returns the current number of duck holds.
func (c *Controller) Holds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holds
}

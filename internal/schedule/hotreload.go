package schedule

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jeertmans/jinglebox/internal/config"
	"github.com/jeertmans/jinglebox/internal/model"
)

// ConfigWatcher watches the app config and jingle definitions for changes
// and validates new contents before handing them to the reload callback.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	configPath  string
	jinglesPath string

	// Last known modification times
	configModTime  time.Time
	jinglesModTime time.Time

	pollInterval time.Duration

	onReloadCallback func(cfg *config.Config, jingles []model.Jingle)
	onErrorCallback  func(err error)

	stopCh chan struct{}
	doneCh chan struct{}

	running bool
}

// NewConfigWatcher creates a watcher for the given config and jingles files.
func NewConfigWatcher(configPath, jinglesPath string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &ConfigWatcher{
		logger:       logger,
		configPath:   configPath,
		jinglesPath:  jinglesPath,
		pollInterval: 1 * time.Second,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// SetPollInterval sets the polling interval for file changes.
func (w *ConfigWatcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pollInterval = interval
}

// SetReloadCallback sets the callback invoked after a successful reload.
func (w *ConfigWatcher) SetReloadCallback(callback func(cfg *config.Config, jingles []model.Jingle)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback invoked when a changed file fails to
// parse or validate.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching the files for changes.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true

	if info, err := os.Stat(w.configPath); err == nil {
		w.configModTime = info.ModTime()
	}
	if info, err := os.Stat(w.jinglesPath); err == nil {
		w.jinglesModTime = info.ModTime()
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.watchLoop(ctx)

	w.logger.Debug("config watcher started",
		"config", w.configPath, "jingles", w.jinglesPath, "interval", w.pollInterval)
	return nil
}

// Stop stops watching the files.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	w.logger.Debug("config watcher stopped")
}

// watchLoop is the main polling loop.
func (w *ConfigWatcher) watchLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.checkForChanges()
		}
	}
}

// checkForChanges reloads when either file has been modified.
func (w *ConfigWatcher) checkForChanges() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	configModTime := w.configModTime
	jinglesModTime := w.jinglesModTime
	w.mu.RUnlock()

	changed := false

	if info, err := os.Stat(w.configPath); err == nil && info.ModTime().After(configModTime) {
		w.mu.Lock()
		w.configModTime = info.ModTime()
		w.mu.Unlock()
		changed = true
	}
	if info, err := os.Stat(w.jinglesPath); err == nil && info.ModTime().After(jinglesModTime) {
		w.mu.Lock()
		w.jinglesModTime = info.ModTime()
		w.mu.Unlock()
		changed = true
	}

	if !changed {
		return
	}

	w.logger.Debug("configuration changed, reloading")

	cfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		w.logger.Warn("config changed but failed to load", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	jingles, err := config.LoadJingles(w.jinglesPath)
	if err != nil {
		w.logger.Warn("jingles changed but failed to load", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.logger.Info("configuration reloaded", "jingles", len(jingles))
	if reloadCallback != nil {
		reloadCallback(cfg, jingles)
	}
}

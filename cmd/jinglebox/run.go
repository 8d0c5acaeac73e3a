package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeertmans/jinglebox/internal/config"
	"github.com/jeertmans/jinglebox/internal/daemon"
	"github.com/jeertmans/jinglebox/internal/model"
	"github.com/jeertmans/jinglebox/internal/schedule"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler headless",
	Long: `Run the jingle scheduler without the TUI. Intended for starting from
a session autostart file or a systemd user unit.

Config and jingle files are watched for changes and applied without a
restart. SIGINT or SIGTERM stops the scheduler and restores any ducked
volumes.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	engine, err := daemon.NewEngine(cfg, jingles, historyPath(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		return err
	}

	watcher := schedule.NewConfigWatcher(configPath(), jinglesPath(), logger)
	watcher.SetReloadCallback(func(newCfg *config.Config, newJingles []model.Jingle) {
		engine.Reload(newCfg, newJingles)
	})
	watcher.SetErrorCallback(func(err error) {
		logger.Warn("config reload failed, keeping previous settings", "error", err)
	})
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	logger.Info("jinglebox running",
		"jingles", len(jingles),
		"pending", len(engine.Scheduler().Pending()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	watcher.Stop()
	engine.Stop()
	return nil
}

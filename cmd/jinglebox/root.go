package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeertmans/jinglebox/internal/config"
	"github.com/jeertmans/jinglebox/internal/model"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	jingles    []model.Jingle
	globalOpts struct {
		verbose     bool
		configPath  string
		jinglesPath string
		historyFile string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "jinglebox",
	Short: "Scheduled jingle player for sport tournaments",
	Long: `jinglebox plays audio jingles on a tournament schedule and ducks the
volume of your music player while they play.

Jingles are anchored to game start, halftime or game end, with an
optional offset. The game grid is derived from the tournament settings
(first game, last game, game and break durations).

Running jinglebox without a subcommand launches the interactive TUI.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(configPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := config.EnsureDataDir(); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		jingles, err = config.LoadJingles(jinglesPath())
		if err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to load jingles: %w", err)
			}
			// Fresh install, no jingles yet
			jingles = nil
		}

		return nil
	},
	// Default to TUI when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/jinglebox/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.jinglesPath, "jingles", "",
		"Path to jingles file (default: ~/.config/jinglebox/jingles.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.historyFile, "history-file", "",
		"Path to play history (default: ~/.local/share/jinglebox/history.jsonl)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func configPath() string {
	if globalOpts.configPath != "" {
		return globalOpts.configPath
	}
	return config.ConfigPath()
}

func jinglesPath() string {
	if globalOpts.jinglesPath != "" {
		return globalOpts.jinglesPath
	}
	return config.JinglesPath()
}

func historyPath() string {
	if globalOpts.historyFile != "" {
		return globalOpts.historyFile
	}
	return config.HistoryPath()
}

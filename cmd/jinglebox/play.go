package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeertmans/jinglebox/internal/daemon"
)

var playOpts struct {
	noDuck bool
}

var playCmd = &cobra.Command{
	Use:   "play <name|file>",
	Short: "Play a jingle immediately",
	Long: `Play a jingle right now, outside the schedule.

The argument is matched against the names in jingles.toml
(case-insensitive); anything that does not match is treated as an audio
file path. The music app is ducked while the jingle plays unless
--no-duck is given. The play is recorded in the history as a manual
trigger.

Examples:
  jinglebox play "Start horn"
  jinglebox play ~/jingles/final-whistle.ogg --no-duck`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().BoolVar(&playOpts.noDuck, "no-duck", false,
		"Do not duck the music app volume")
}

func runPlay(cmd *cobra.Command, args []string) error {
	if playOpts.noDuck {
		cfg.Duck.Enabled = false
	}

	engine, err := daemon.NewEngine(cfg, jingles, historyPath(), logger)
	if err != nil {
		return err
	}
	defer engine.History().Close()

	if err := engine.PlayNowAndWait(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to play %q: %w", args[0], err)
	}
	return nil
}

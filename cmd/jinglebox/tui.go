package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jeertmans/jinglebox/internal/daemon"
	"github.com/jeertmans/jinglebox/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive schedule view",
	Long: `Launch the interactive terminal interface. The scheduler runs inside
it, so jingles fire while the view is open.

The TUI shows:
  - The planned jingles with live countdowns
  - The next game and next jingle at a glance
  - Recent play history

Key bindings:
  j/k, ↑/↓    Navigate list
  enter/p     Play selected jingle now
  s           Skip next jingle
  space       Pause/resume scheduler
  r           Reload config and jingles
  /           Filter by name
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	engine, err := daemon.NewEngine(cfg, jingles, historyPath(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Stop()

	return tui.Run(engine, configPath(), jinglesPath())
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeertmans/jinglebox/internal/duck"
)

var duckOpts struct {
	restore bool
	volume  int
}

var duckCmd = &cobra.Command{
	Use:   "duck",
	Short: "Manually duck or restore the music app volume",
	Long: `Apply the configured ducked volume to the music app, or set an
explicit volume with --volume. Use --restore to bring the app back to
the configured listening volume.

Examples:
  jinglebox duck
  jinglebox duck --volume 20
  jinglebox duck --restore`,
	RunE: runDuck,
}

func init() {
	rootCmd.AddCommand(duckCmd)

	duckCmd.Flags().BoolVar(&duckOpts.restore, "restore", false,
		"Restore the configured listening volume")
	duckCmd.Flags().IntVar(&duckOpts.volume, "volume", -1,
		"Set an explicit volume percentage instead of the configured one")
}

func runDuck(cmd *cobra.Command, args []string) error {
	if cfg.Duck.App == "" {
		return fmt.Errorf("no music app configured; set duck.app in config.toml")
	}

	controller := duck.NewController(cfg.Duck, logger)

	target := cfg.Duck.DuckedVolume
	if duckOpts.restore {
		target = cfg.Duck.Volume
	}
	if duckOpts.volume >= 0 {
		target = duckOpts.volume
	}
	if target > 100 {
		return fmt.Errorf("volume %d out of range (0-100)", target)
	}

	if err := controller.SetAppVolume(cmd.Context(), target); err != nil {
		if errors.Is(err, duck.ErrAppNotFound) {
			return fmt.Errorf("no audio stream matching %q is playing", cfg.Duck.App)
		}
		return err
	}

	fmt.Printf("Set %s volume to %d%%\n", cfg.Duck.App, target)
	return nil
}

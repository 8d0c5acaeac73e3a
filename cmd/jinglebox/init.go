package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeertmans/jinglebox/internal/config"
	"github.com/jeertmans/jinglebox/internal/model"
)

var initOpts struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write example config and jingles files",
	Long: `Write an example config.toml and jingles.toml to the config directory.
Existing files are left alone unless --force is given.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initOpts.force, "force", false,
		"Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfgPath := configPath()
	jPath := jinglesPath()

	if err := writeExampleConfig(cfgPath); err != nil {
		return err
	}
	if err := writeExampleJingles(jPath); err != nil {
		return err
	}
	return nil
}

func writeExampleConfig(path string) error {
	if _, err := os.Stat(path); err == nil && !initOpts.force {
		fmt.Printf("%s already exists, skipping (use --force to overwrite)\n", path)
		return nil
	}

	example := config.DefaultConfig()
	if err := example.Save(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func writeExampleJingles(path string) error {
	if _, err := os.Stat(path); err == nil && !initOpts.force {
		fmt.Printf("%s already exists, skipping (use --force to overwrite)\n", path)
		return nil
	}

	example := []model.Jingle{
		{Name: "Game start", File: "~/jingles/start.ogg", Anchor: model.AnchorStart},
		{Name: "Halftime", File: "~/jingles/halftime.ogg", Anchor: model.AnchorHalf},
		{Name: "Second half", File: "~/jingles/second-half.ogg", Anchor: model.AnchorHalf, Offset: 90 * time.Second},
		{Name: "Final whistle", File: "~/jingles/end.ogg", Anchor: model.AnchorEnd},
		{Name: "Cleanup call", File: "~/jingles/cleanup.ogg", Anchor: model.AnchorEnd, Offset: 2 * time.Minute},
	}
	if err := config.SaveJingles(path, example); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

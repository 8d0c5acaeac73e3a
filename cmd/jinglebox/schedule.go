package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jeertmans/jinglebox/internal/model"
	"github.com/jeertmans/jinglebox/internal/schedule"
)

var scheduleOpts struct {
	format string
	games  bool
}

// scheduleEntry is the serialized form of a planned jingle.
type scheduleEntry struct {
	Name     string    `json:"name" yaml:"name"`
	File     string    `json:"file" yaml:"file"`
	Anchor   string    `json:"anchor" yaml:"anchor"`
	Offset   string    `json:"offset" yaml:"offset"`
	GameAt   time.Time `json:"game_at" yaml:"game_at"`
	FireTime time.Time `json:"fire_time" yaml:"fire_time"`
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the computed jingle schedule",
	Long: `Compute and print the planned jingles from the tournament settings and
the jingles file, without starting the scheduler.

Examples:
  jinglebox schedule
  jinglebox schedule --format json
  jinglebox schedule --games`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVarP(&scheduleOpts.format, "format", "f", "table",
		"Output format (table, json, yaml)")
	scheduleCmd.Flags().BoolVar(&scheduleOpts.games, "games", false,
		"Print the game grid instead of the jingle plan")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	now := time.Now()
	games := schedule.BuildGames(schedule.SettingsFromConfig(cfg), now)

	if scheduleOpts.games {
		return outputGames(games)
	}

	plan := schedule.BuildPlan(jingles, games, now)
	entries := make([]scheduleEntry, len(plan))
	for i, p := range plan {
		entries[i] = scheduleEntry{
			Name:     p.Jingle.DisplayName(),
			File:     p.Jingle.File,
			Anchor:   string(p.Jingle.Anchor),
			Offset:   p.Jingle.Offset.String(),
			GameAt:   p.Game.Start,
			FireTime: p.FireTime,
		}
	}

	switch scheduleOpts.format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(entries)
	case "table":
		return outputPlanTable(entries)
	default:
		return fmt.Errorf("unknown format %q (table, json, yaml)", scheduleOpts.format)
	}
}

func outputPlanTable(entries []scheduleEntry) error {
	if len(entries) == 0 {
		fmt.Println("No jingles planned. Check tournament settings and jingles.toml.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIRE TIME\tIN\tNAME\tANCHOR\tGAME")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%s\t%s\n",
			e.FireTime.Format("15:04:05"),
			humanize.Time(e.FireTime),
			e.Name,
			e.Anchor,
			offsetSuffix(e.Offset),
			e.GameAt.Format("15:04"))
	}
	return w.Flush()
}

func outputGames(games []model.Game) error {
	if len(games) == 0 {
		fmt.Println("No games scheduled. Set first_game and last_game in config.toml.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "START\tHALF\tEND")
	for _, g := range games {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			g.Start.Format("15:04:05"),
			g.Half().Format("15:04:05"),
			g.End().Format("15:04:05"))
	}
	return w.Flush()
}

func offsetSuffix(offset string) string {
	if offset == "0s" {
		return ""
	}
	return "+" + offset
}

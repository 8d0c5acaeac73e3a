package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeertmans/jinglebox/internal/model"
	"github.com/jeertmans/jinglebox/internal/schedule"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the next planned jingle in Waybar's custom module JSON format.

This is designed to be used with Waybar's custom module:

  "custom/jinglebox": {
    "exec": "jinglebox status",
    "interval": 5,
    "return-type": "json",
    "on-click": "jinglebox tui"
  }

The output includes:
  - text: Countdown to the next jingle
  - alt: Jingle name
  - tooltip: Full plan summary for the next few jingles
  - class: "pending", "soon" (under a minute) or "idle"`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	now := time.Now()
	games := schedule.BuildGames(schedule.SettingsFromConfig(cfg), now)
	plan := schedule.BuildPlan(jingles, games, now)

	return outputStatus(buildStatus(plan, now))
}

// buildStatus creates a WaybarStatus from the pending plan.
func buildStatus(plan []model.PlannedJingle, now time.Time) WaybarStatus {
	if len(plan) == 0 {
		return WaybarStatus{
			Text:  "",
			Alt:   "idle",
			Class: "idle",
		}
	}

	next := plan[0]
	until := next.FireTime.Sub(now).Round(time.Second)

	class := "pending"
	if until < time.Minute {
		class = "soon"
	}

	tooltip := ""
	for i, p := range plan {
		if i >= 5 {
			tooltip += fmt.Sprintf("… %d more", len(plan)-i)
			break
		}
		tooltip += fmt.Sprintf("%s  %s (%s)\n",
			p.FireTime.Format("15:04:05"),
			p.Jingle.DisplayName(),
			humanize.Time(p.FireTime))
	}

	return WaybarStatus{
		Text:    formatCountdown(until),
		Alt:     next.Jingle.DisplayName(),
		Tooltip: tooltip,
		Class:   class,
	}
}

// formatCountdown renders a duration as mm:ss or h:mm:ss.
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// outputStatus writes the status as JSON.
func outputStatus(status WaybarStatus) error {
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(status)
}

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

	"github.com/jeertmans/jinglebox/internal/history"
	"github.com/jeertmans/jinglebox/internal/model"
)

var logOpts struct {
	limit   int
	since   string
	outcome string
	format  string
	clear   bool
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the play history",
	Long: `Show recorded jingle plays, newest first.

Examples:
  jinglebox log
  jinglebox log --since 2h
  jinglebox log --outcome missed
  jinglebox log --format json
  jinglebox log --clear`,
	RunE: runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().IntVarP(&logOpts.limit, "limit", "n", 20,
		"Maximum number of records to show (0=unlimited)")
	logCmd.Flags().StringVar(&logOpts.since, "since", "",
		"Show records from the last duration (e.g. 2h, 30m)")
	logCmd.Flags().StringVar(&logOpts.outcome, "outcome", "",
		"Filter by outcome (played, missed, failed)")
	logCmd.Flags().StringVarP(&logOpts.format, "format", "f", "table",
		"Output format (table, json, yaml)")
	logCmd.Flags().BoolVar(&logOpts.clear, "clear", false,
		"Clear the play history")
}

func runLog(cmd *cobra.Command, args []string) error {
	persistence, err := history.NewJSONLPersistence(historyPath())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	playLog := history.NewLog(persistence)
	defer playLog.Close()

	if err := playLog.Hydrate(); err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if logOpts.clear {
		count := playLog.Count()
		if err := playLog.Clear(); err != nil {
			return err
		}
		fmt.Printf("Cleared %d records\n", count)
		return nil
	}

	opts := history.FilterOptions{
		Outcome: logOpts.outcome,
		Limit:   logOpts.limit,
	}
	if logOpts.since != "" {
		since, err := time.ParseDuration(logOpts.since)
		if err != nil {
			return fmt.Errorf("invalid --since duration: %w", err)
		}
		opts.Since = since
	}

	records := playLog.Filter(opts)

	switch logOpts.format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(records)
	case "table":
		return outputLogTable(records)
	default:
		return fmt.Errorf("unknown format %q (table, json, yaml)", logOpts.format)
	}
}

func outputLogTable(records []model.PlayRecord) error {
	if len(records) == 0 {
		fmt.Println("No plays recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYED\tNAME\tTRIGGER\tOUTCOME\tNOTE")
	for _, r := range records {
		note := r.Error
		if note == "" && r.Ducked {
			note = "ducked"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(r.PlayedAtTime()),
			r.Name,
			r.Trigger,
			r.Outcome,
			note)
	}
	return w.Flush()
}

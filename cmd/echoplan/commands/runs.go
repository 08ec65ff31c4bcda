package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/echoplan/internal/printer"
	"github.com/dyluth/echoplan/internal/report"
	"github.com/dyluth/echoplan/internal/store"
	"github.com/dyluth/echoplan/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	runsOutputFormat string
	runsSince        string
	runsUntil        string
	runsName         string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List saved runs with filtering",
	Long: `List runs saved with "echoplan plan --save", oldest first.

Output Formats:
  default - Human-readable table with ID, name, age and plate/transfer counts
  jsonl   - Line-delimited JSON, one run per line

Time Filters:
  --since  - Show runs created after this time
  --until  - Show runs created before this time
  Both accept a duration ("2h", "30m") or a timestamp ("2025-10-29T13:00:00Z").

Examples:
  # List all runs
  echoplan runs

  # Runs from the last day named screen-*
  echoplan runs --since=24h --name="screen-*"

  # Pipe to jq
  echoplan runs --output=jsonl | jq '.instructions | length'`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().StringVarP(&runsOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	runsCmd.Flags().StringVar(&runsSince, "since", "", "Show runs after time (duration or RFC3339)")
	runsCmd.Flags().StringVar(&runsUntil, "until", "", "Show runs before time (duration or RFC3339)")
	runsCmd.Flags().StringVar(&runsName, "name", "", "Filter by run name (glob pattern)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if runsOutputFormat != "default" && runsOutputFormat != "jsonl" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", runsOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	window, err := timespec.ParseRange(runsSince, runsUntil)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use a duration such as 2h or a timestamp such as 2025-10-29T13:00:00Z"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(ctx, store.Filter{SinceMs: window.SinceMs, UntilMs: window.UntilMs, Name: runsName})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if runsOutputFormat == "jsonl" {
		return report.FormatJSONL(out, runs)
	}
	report.FormatRunsTable(out, runs, cfg.Store.Project, time.Now())
	return nil
}

package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/echoplan/internal/printer"
	"github.com/dyluth/echoplan/internal/report"
	"github.com/dyluth/echoplan/internal/store"
	"github.com/dyluth/echoplan/internal/watch"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchFor          string
	watchTimeout      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream runs as they are saved",
	Long: `Stream runs as they are saved to the configured store.

Streaming needs the redis backend, which publishes an event for every saved
run. With --for, watch instead waits for one run ID to appear; this works
with every backend.

Output Formats:
  default - One human-readable line per run
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Follow runs saved by other planners
  echoplan watch

  # Export events as JSON
  echoplan watch --output=json > runs.jsonl

  # Wait up to a minute for a specific run
  echoplan watch --for 3f9a2c1e-8d4b-4c55-9f0e-2b7d1a6c9e41 --timeout 1m`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringVar(&watchFor, "for", "", "Wait for this full run ID instead of streaming")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 30*time.Second, "How long --for waits")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			err.Error(),
			[]string{"Valid formats: default, json"},
		)
	}
	if watchFor != "" {
		if _, err := uuid.Parse(watchFor); err != nil {
			return printer.Error(
				"invalid run ID",
				fmt.Sprintf("--for needs a full run UUID, got '%s'", watchFor),
				nil,
			)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if watchFor != "" {
		run, err := watch.PollForRun(ctx, s, watchFor, watchTimeout)
		if err != nil {
			return printer.Error("run did not appear", err.Error(), nil)
		}
		if format == watch.OutputFormatJSON {
			return report.FormatSingleJSON(out, run)
		}
		report.FormatRunDetail(out, run)
		return nil
	}

	sub, err := store.Subscribe(ctx, s)
	if errors.Is(err, store.ErrNoEvents) {
		return printer.Error(
			"run events unavailable",
			fmt.Sprintf("The %s backend does not publish run events.", cfg.Store.Backend),
			[]string{
				"Use the redis backend:\n  store:\n    backend: redis",
				"Wait for one run instead:\n  echoplan watch --for <run-id>",
			},
		)
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe to run events: %w", err)
	}

	if format == watch.OutputFormatDefault {
		printer.Info("Watching project '%s' for new runs (Ctrl+C to stop)\n", cfg.Store.Project)
	}
	return watch.StreamRuns(ctx, sub, format, out, logger)
}

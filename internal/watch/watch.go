// Package watch follows saved runs as they arrive.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/echoplan/internal/store"
	"github.com/dyluth/echoplan/internal/table"
	"go.uber.org/zap"
)

// OutputFormat selects how streamed runs are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// StreamRuns writes one line per run received on sub until ctx is cancelled
// or the subscription closes. Subscription errors are logged and skipped.
func StreamRuns(ctx context.Context, sub *store.Subscription, format OutputFormat, w io.Writer, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	defer sub.Close()

	events := sub.Events()
	errs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeRun(w, r, format); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("Skipping malformed run event", zap.Error(err))
		}
	}
}

func writeRun(w io.Writer, r *store.Run, format OutputFormat) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal run %s: %w", r.ID, err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var volume float64
	for _, in := range r.Instructions {
		volume += in.Volume
	}
	_, err := fmt.Fprintf(w, "[%s] run %s %q: %d destination plate(s), %d source plate(s), %d transfer(s), %s nL\n",
		r.CreatedAt().Format("15:04:05"), shortID(r.ID), r.Name,
		len(r.Destinations), len(r.Sources), len(r.Instructions), table.FormatVolume(volume))
	return err
}

// PollForRun polls s every 200ms until the run with the given full ID exists.
// It works with backends that do not publish events.
func PollForRun(ctx context.Context, s store.Store, runID string, timeout time.Duration) (*store.Run, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		r, err := s.GetRun(ctx, runID)
		if err == nil {
			return r, nil
		}
		if !store.IsNotFound(err) {
			return nil, fmt.Errorf("failed to query for run: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for run %s after %v", runID, timeout)
		case <-ticker.C:
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

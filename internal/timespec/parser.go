// Package timespec parses the --since and --until flags used to filter runs.
package timespec

import (
	"fmt"
	"time"
)

// Range is a creation-time window in Unix milliseconds. Zero means unbounded.
type Range struct {
	SinceMs int64
	UntilMs int64
}

// layouts are tried in order after RFC3339 fails.
var layouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse parses a time specification relative to time.Now.
func Parse(spec string) (int64, error) {
	return ParseAt(spec, time.Now())
}

// ParseAt parses spec into a Unix timestamp in milliseconds. It accepts a Go
// duration ("1h30m", meaning that long before now), an RFC3339 timestamp,
// or a local date or date-time such as "2025-10-29" or "2025-10-29 13:00".
func ParseAt(spec string, now time.Time) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}
	if d, err := time.ParseDuration(spec); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("invalid time specification: %s (duration must not be negative)", spec)
		}
		return now.Add(-d).UnixMilli(), nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, spec, now.Location()); err == nil {
			return t.UnixMilli(), nil
		}
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m', a date like '2025-10-29' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// ParseRange parses the --since and --until flag values. An empty value
// leaves that end of the range unbounded.
func ParseRange(since, until string) (Range, error) {
	return ParseRangeAt(since, until, time.Now())
}

// ParseRangeAt is ParseRange relative to now.
func ParseRangeAt(since, until string, now time.Time) (Range, error) {
	var r Range
	var err error

	if since != "" {
		if r.SinceMs, err = ParseAt(since, now); err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if r.UntilMs, err = ParseAt(until, now); err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if r.SinceMs > 0 && r.UntilMs > 0 && r.SinceMs >= r.UntilMs {
		return Range{}, fmt.Errorf("--since must be before --until")
	}
	return r, nil
}

package store

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/dyluth/echoplan/pkg/plate"
	"github.com/google/uuid"
)

// Run is one persisted planning pass: the plates it produced and the
// instructions compiled between them.
type Run struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	CreatedAtMs  int64                  `json:"created_at_ms"`
	Destinations []plate.Record         `json:"destinations"`
	Sources      []plate.Record         `json:"sources"`
	Instructions []transfer.Instruction `json:"instructions"`
}

// NewRun snapshots the plates and instructions of a run under a fresh ID.
func NewRun(name string, destinations, sources []*plate.Plate, instructions []transfer.Instruction) *Run {
	return &Run{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedAtMs:  time.Now().UnixMilli(),
		Destinations: plate.Records(destinations),
		Sources:      plate.Records(sources),
		Instructions: instructions,
	}
}

// Validate checks the run before it is written.
func (r *Run) Validate() error {
	if !isValidUUID(r.ID) {
		return fmt.Errorf("invalid run ID: not a valid UUID")
	}
	if r.CreatedAtMs <= 0 {
		return fmt.Errorf("invalid created_at_ms: must be > 0, got %d", r.CreatedAtMs)
	}
	if len(r.Destinations) == 0 {
		return fmt.Errorf("run has no destination plates")
	}
	return nil
}

// CreatedAt returns the creation time.
func (r *Run) CreatedAt() time.Time {
	return time.UnixMilli(r.CreatedAtMs)
}

// Plates rebuilds the destination and source plates from their records.
func (r *Run) Plates() (destinations, sources []*plate.Plate, err error) {
	if destinations, err = plate.FromRecords(r.Destinations); err != nil {
		return nil, nil, fmt.Errorf("destinations: %w", err)
	}
	if sources, err = plate.FromRecords(r.Sources); err != nil {
		return nil, nil, fmt.Errorf("sources: %w", err)
	}
	return destinations, sources, nil
}

// Filter selects runs by creation time and name. Zero values do not filter.
type Filter struct {
	SinceMs int64
	UntilMs int64
	Name    string // glob pattern, e.g. "screen-*"
}

// Match reports whether the run passes the filter.
func (f Filter) Match(r *Run) bool {
	if f.SinceMs > 0 && r.CreatedAtMs < f.SinceMs {
		return false
	}
	if f.UntilMs > 0 && r.CreatedAtMs > f.UntilMs {
		return false
	}
	if f.Name != "" {
		matched, err := filepath.Match(f.Name, r.Name)
		if err != nil || !matched {
			return false
		}
	}
	return true
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

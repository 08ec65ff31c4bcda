package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/dyluth/echoplan/pkg/plate"
)

// Redis stores runs as string-to-string hashes. Scalar fields are stored
// directly; plate records and instructions are JSON-encoded into single fields.

// RunToHash converts a Run to a Redis hash.
func RunToHash(r *Run) (map[string]interface{}, error) {
	destinations, err := json.Marshal(r.Destinations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal destinations: %w", err)
	}
	sources, err := json.Marshal(r.Sources)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sources: %w", err)
	}
	instructions, err := json.Marshal(r.Instructions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal instructions: %w", err)
	}

	return map[string]interface{}{
		"id":            r.ID,
		"name":          r.Name,
		"created_at_ms": r.CreatedAtMs,
		"destinations":  string(destinations),
		"sources":       string(sources),
		"instructions":  string(instructions),
	}, nil
}

// HashToRun converts a Redis hash back to a Run.
func HashToRun(hash map[string]string) (*Run, error) {
	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	r := &Run{
		ID:          hash["id"],
		Name:        hash["name"],
		CreatedAtMs: createdAtMs,
	}
	if err := unmarshalField(hash, "destinations", &r.Destinations); err != nil {
		return nil, err
	}
	if err := unmarshalField(hash, "sources", &r.Sources); err != nil {
		return nil, err
	}
	if err := unmarshalField(hash, "instructions", &r.Instructions); err != nil {
		return nil, err
	}

	// Ensure we have empty slices instead of nil for consistency
	if r.Destinations == nil {
		r.Destinations = []plate.Record{}
	}
	if r.Sources == nil {
		r.Sources = []plate.Record{}
	}
	if r.Instructions == nil {
		r.Instructions = []transfer.Instruction{}
	}
	return r, nil
}

func unmarshalField(hash map[string]string, field string, v any) error {
	raw := hash[field]
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", field, err)
	}
	return nil
}

package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/echoplan/pkg/plate"
)

// ReadPlatesFile reads plate records from a JSON file holding either one
// record or an array of records.
func ReadPlatesFile(path string) ([]*plate.Plate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []plate.Record
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var r plate.Record
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		records = []plate.Record{r}
	} else if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	plates, err := plate.FromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plates, nil
}

// WritePlatesFile writes the plates as an indented JSON array of records.
func WritePlatesFile(path string, plates []*plate.Plate) error {
	data, err := json.MarshalIndent(plate.Records(plates), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plates: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

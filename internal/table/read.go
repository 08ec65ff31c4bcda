package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dyluth/echoplan/internal/allocate"
	"github.com/dyluth/echoplan/internal/layout"
	"github.com/dyluth/echoplan/pkg/plate"
)

// identifierColumns name sample-table columns that label a row rather than
// hold a component volume. Matching is case-insensitive.
var identifierColumns = map[string]bool{"sample": true, "name": true, "id": true, "label": true}

// ReadSamplesFile reads a sample table from path.
func ReadSamplesFile(path string) ([]layout.Sample, error) {
	r, closer, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	samples, err := ReadSamples(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// ReadSamples reads one sample per row. The header names the components;
// every other cell is that component's volume in the row's sample. Empty
// cells and zeros leave the component out of the sample, so components keep
// header order. Identifier columns (sample, name, id, label) are skipped.
func ReadSamples(r *csv.Reader) ([]layout.Sample, error) {
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty sample table")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	components := make([]string, len(header))
	seen := make(map[string]bool)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if identifierColumns[strings.ToLower(name)] {
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty header", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate component column %q", name)
		}
		seen[name] = true
		components[i] = name
	}

	var samples []layout.Sample
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(row) {
			continue
		}
		var s layout.Sample
		for i, cell := range row {
			if components[i] == "" {
				continue
			}
			v, err := parseVolume(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", line, components[i], err)
			}
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d, column %q: %w: %g", line, components[i], plate.ErrInvalidVolume, v)
			}
			if v > 0 {
				s = append(s, plate.Content{Component: components[i], Volume: v})
			}
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// ReadRequirementsFile reads a requirement table from path.
func ReadRequirementsFile(path string) ([]allocate.Requirement, error) {
	r, closer, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	reqs, err := ReadRequirements(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reqs, nil
}

// ReadRequirements reads a two-column table of component and volume. Rows
// naming the same component are summed into the first row's position.
func ReadRequirements(r *csv.Reader) ([]allocate.Requirement, error) {
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty requirement table")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	compCol, volCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "component":
			compCol = i
		case "volume":
			volCol = i
		}
	}
	if compCol < 0 || volCol < 0 {
		return nil, fmt.Errorf("requirement table needs 'Component' and 'Volume' columns")
	}

	var reqs []allocate.Requirement
	pos := make(map[string]int)
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(row) {
			continue
		}
		name := strings.TrimSpace(row[compCol])
		if name == "" {
			return nil, fmt.Errorf("line %d: empty component name", line)
		}
		v, err := parseVolume(row[volCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("line %d: %w: %g", line, plate.ErrInvalidVolume, v)
		}
		if i, ok := pos[name]; ok {
			reqs[i].Volume += v
			continue
		}
		pos[name] = len(reqs)
		reqs = append(reqs, allocate.Requirement{Component: name, Volume: v})
	}
	return reqs, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

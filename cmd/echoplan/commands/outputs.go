package commands

import (
	"fmt"
	"path/filepath"

	"github.com/dyluth/echoplan/internal/table"
	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/dyluth/echoplan/pkg/plate"
)

// Output file names written by plan, compile and allocate.
const (
	DestinationLayoutFile = "destination_layout.csv"
	SourceLayoutFile      = "source_layout.csv"
	InstructionsFile      = "instructions.csv"
	SummaryFile           = "summary.csv"
	DestinationPlatesFile = "destination_plates.json"
	SourcePlatesFile      = "source_plates.json"
)

// batchFile names the instruction table for one group.
func batchFile(name string) string {
	return fmt.Sprintf("instructions_%s.csv", name)
}

// writeInstructions writes instructions.csv, or one file per batch when the
// run is grouped. Returns the written paths.
func writeInstructions(dir string, instructions []transfer.Instruction, batches []transfer.Batch) ([]string, error) {
	if len(batches) == 0 {
		path := filepath.Join(dir, InstructionsFile)
		if err := table.WriteInstructionsFile(path, instructions); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	paths := make([]string, 0, len(batches))
	for _, b := range batches {
		path := filepath.Join(dir, batchFile(b.Name))
		if err := table.WriteInstructionsFile(path, b.Instructions); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writePlates writes a layout table and the matching plate record file.
func writePlates(dir, layoutName, recordsName string, named []transfer.NamedPlate) ([]string, error) {
	layoutPath := filepath.Join(dir, layoutName)
	if err := table.WriteLayoutFile(layoutPath, named); err != nil {
		return nil, err
	}
	recordsPath := filepath.Join(dir, recordsName)
	if err := table.WritePlatesFile(recordsPath, plates(named)); err != nil {
		return nil, err
	}
	return []string{layoutPath, recordsPath}, nil
}

func plates(named []transfer.NamedPlate) []*plate.Plate {
	out := make([]*plate.Plate, len(named))
	for i, n := range named {
		out[i] = n.Plate
	}
	return out
}

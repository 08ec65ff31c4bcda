package table

import (
	"encoding/csv"

	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/dyluth/echoplan/pkg/plate"
)

// InstructionHeader is the column order of an instruction table.
var InstructionHeader = []string{
	"Source Plate Name",
	"Source Plate Type",
	"Source Well",
	"Destination Plate Name",
	"Destination Well",
	"Transfer Volume",
	"Component",
}

// LayoutHeader is the column order of a plate-layout table.
var LayoutHeader = []string{"Plate", "Well", "Component", "Volume"}

// SummaryHeader is the column order of a volume-summary table.
var SummaryHeader = []string{"Component", "Volume"}

// WriteInstructions writes one row per instruction, in order.
func WriteInstructions(w *csv.Writer, instructions []transfer.Instruction) error {
	if err := w.Write(InstructionHeader); err != nil {
		return err
	}
	for _, in := range instructions {
		if err := w.Write([]string{
			in.SourcePlate,
			in.SourcePlateType,
			in.SourceWell.String(),
			in.DestinationPlate,
			in.DestinationWell.String(),
			FormatVolume(in.Volume),
			in.Component,
		}); err != nil {
			return err
		}
	}
	return nil
}

// WriteLayout writes one row per plate, occupied well and component, walking
// plates in order, wells in address order and components in fill order.
func WriteLayout(w *csv.Writer, plates []transfer.NamedPlate) error {
	if err := w.Write(LayoutHeader); err != nil {
		return err
	}
	for _, p := range plates {
		for _, well := range p.Plate.Wells() {
			for _, c := range well.Contents {
				if err := w.Write([]string{p.Name, well.Label.String(), c.Component, FormatVolume(c.Volume)}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// WriteSummary writes one row per component.
func WriteSummary(w *csv.Writer, summary []plate.Content) error {
	if err := w.Write(SummaryHeader); err != nil {
		return err
	}
	for _, c := range summary {
		if err := w.Write([]string{c.Component, FormatVolume(c.Volume)}); err != nil {
			return err
		}
	}
	return nil
}

// WriteInstructionsFile writes an instruction table to path.
func WriteInstructionsFile(path string, instructions []transfer.Instruction) error {
	return writeFile(path, func(w *csv.Writer) error { return WriteInstructions(w, instructions) })
}

// WriteLayoutFile writes a plate-layout table to path.
func WriteLayoutFile(path string, plates []transfer.NamedPlate) error {
	return writeFile(path, func(w *csv.Writer) error { return WriteLayout(w, plates) })
}

// WriteSummaryFile writes a volume-summary table to path.
func WriteSummaryFile(path string, summary []plate.Content) error {
	return writeFile(path, func(w *csv.Writer) error { return WriteSummary(w, summary) })
}

package transfer

import (
	"fmt"

	"github.com/dyluth/echoplan/pkg/plate"
)

// Instruction is one liquid transfer from a source location to a destination well.
type Instruction struct {
	SourcePlate      string          `json:"source_plate"`
	SourcePlateType  string          `json:"source_plate_type"`
	SourceWell       SourceLocation  `json:"source_well"`
	DestinationPlate string          `json:"destination_plate"`
	DestinationWell  plate.WellLabel `json:"destination_well"`
	Volume           float64         `json:"volume"`
	Component        string          `json:"component"`
}

// String renders the instruction on one line for logs and test failures.
func (in Instruction) String() string {
	return fmt.Sprintf("%s:%s -> %s:%s %g %s",
		in.SourcePlate, in.SourceWell, in.DestinationPlate, in.DestinationWell, in.Volume, in.Component)
}

// NamedPlate pairs a plate with the name written into instructions.
type NamedPlate struct {
	Name  string
	Plate *plate.Plate
}

// NamePlates names plates "<prefix>[1]", "<prefix>[2]", ...
func NamePlates(prefix string, plates []*plate.Plate) []NamedPlate {
	out := make([]NamedPlate, len(plates))
	for i, p := range plates {
		out[i] = NamedPlate{Name: fmt.Sprintf("%s[%d]", prefix, i+1), Plate: p}
	}
	return out
}

// PlateTypes maps components to source plate type tags.
type PlateTypes struct {
	Default     string
	ByComponent map[string]string
}

// For returns the tag for an exact component match, else the default.
func (pt PlateTypes) For(component string) string {
	if tag, ok := pt.ByComponent[component]; ok && tag != "" {
		return tag
	}
	return pt.Default
}

// TotalsByComponent sums instruction volumes per component.
func TotalsByComponent(instructions []Instruction) map[string]float64 {
	out := make(map[string]float64)
	for _, in := range instructions {
		out[in.Component] += in.Volume
	}
	return out
}

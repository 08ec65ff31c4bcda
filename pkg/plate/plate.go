package plate

import (
	"fmt"
	"math"
	"sort"
)

// Epsilon is the volume below which a residue is treated as zero. Volumes are
// nanolitres, so this is far below anything a liquid handler can dispense.
const Epsilon = 1e-9

// Content is one component's volume within a well or sample.
type Content struct {
	Component string  `json:"component" yaml:"component"`
	Volume    float64 `json:"volume" yaml:"volume"`
}

// Well is one occupied well: its label, linear index and its contents in the
// order the components were first written.
type Well struct {
	Label    WellLabel
	Index    int
	Contents []Content
}

// Total returns the sum of every component volume in the well.
func (w Well) Total() float64 {
	var total float64
	for _, c := range w.Contents {
		total += c.Volume
	}
	return total
}

// Volume returns the volume of one component, or 0 if absent.
func (w Well) Volume(component string) float64 {
	for _, c := range w.Contents {
		if c.Component == component {
			return c.Volume
		}
	}
	return 0
}

// Spec describes the physical plate type a Plate is built from.
type Spec struct {
	Dimensions   Dimensions
	DeadVolume   float64
	WellCapacity float64
	Orientation  Orientation
}

// Validate checks the geometry and the dead-volume/capacity pair.
func (s Spec) Validate() error {
	if err := s.Dimensions.Validate(); err != nil {
		return err
	}
	return ValidateCapacity(s.WellCapacity, s.DeadVolume)
}

// ValidateCapacity fails with ErrInvalidCapacity when either value is negative
// or the capacity leaves no usable volume above the dead volume.
func ValidateCapacity(wellCapacity, deadVolume float64) error {
	if wellCapacity < 0 || deadVolume < 0 {
		return fmt.Errorf("%w: capacity %g and dead volume %g must not be negative", ErrInvalidCapacity, wellCapacity, deadVolume)
	}
	if wellCapacity <= deadVolume {
		return fmt.Errorf("%w: capacity %g leaves no usable volume above dead volume %g", ErrInvalidCapacity, wellCapacity, deadVolume)
	}
	return nil
}

// Plate is a bounded set of wells holding component volumes. Wells live in an
// arena slice in creation order; index maps a linear well index to its slot.
// A Plate is owned by one planning pass and is not safe for concurrent use.
type Plate struct {
	spec   Spec
	cursor int
	wells  []Well
	index  map[int]int
}

// New creates an empty plate with the cursor on well index 0.
func New(spec Spec) (*Plate, error) {
	if spec.Orientation == "" {
		spec.Orientation = Vertical
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Plate{spec: spec, index: make(map[int]int)}, nil
}

// Spec returns the plate type this plate was created with.
func (p *Plate) Spec() Spec { return p.spec }

// Dimensions returns the plate's row and column count.
func (p *Plate) Dimensions() Dimensions { return p.spec.Dimensions }

// DeadVolume returns the per-well unusable residual volume.
func (p *Plate) DeadVolume() float64 { return p.spec.DeadVolume }

// WellCapacity returns the maximum usable+dead volume of a well.
func (p *Plate) WellCapacity() float64 { return p.spec.WellCapacity }

// Orientation returns the fill orientation.
func (p *Plate) Orientation() Orientation { return p.spec.Orientation }

// Cursor returns the current linear well index.
func (p *Plate) Cursor() int { return p.cursor }

// CursorLabel returns the label of the current well.
func (p *Plate) CursorLabel() WellLabel {
	// The cursor is always in range, so LabelOf cannot fail here.
	l, _ := LabelOf(p.cursor, p.spec.Dimensions, p.spec.Orientation)
	return l
}

// SetCursor moves the cursor to an explicit well.
func (p *Plate) SetCursor(label WellLabel) error {
	idx, err := IndexOf(label, p.spec.Dimensions, p.spec.Orientation)
	if err != nil {
		return err
	}
	p.cursor = idx
	return nil
}

// AdvanceCursor moves to the next well. It fails with ErrOutOfRange when the
// cursor is already on the last well; the plate is then full and the caller
// must start a new one.
func (p *Plate) AdvanceCursor() error {
	if p.cursor+1 >= p.spec.Dimensions.Wells() {
		return fmt.Errorf("%w: plate is full after %s", ErrOutOfRange, p.CursorLabel())
	}
	p.cursor++
	return nil
}

// AdvanceToNextLine moves the cursor to the first well of the next fill line
// (next column for vertical fill, next row for horizontal). A cursor already
// at the start of a line does not move. It fails with ErrOutOfRange when there
// is no further line.
func (p *Plate) AdvanceToNextLine() error {
	n := lineLength(p.spec.Dimensions, p.spec.Orientation)
	if p.cursor%n == 0 {
		return nil
	}
	next := (p.cursor/n + 1) * n
	if next >= p.spec.Dimensions.Wells() {
		return fmt.Errorf("%w: no line after %s", ErrOutOfRange, p.CursorLabel())
	}
	p.cursor = next
	return nil
}

// FillWell adds volume of component to the well under the cursor.
func (p *Plate) FillWell(component string, volume float64) error {
	return p.fill(p.cursor, component, volume)
}

// FillWellAt adds volume of component to the labelled well. Repeated fills of
// the same component accumulate. It fails with ErrOutOfRange for a label off
// the plate and ErrCapacityExceeded when the well total would exceed capacity.
func (p *Plate) FillWellAt(label WellLabel, component string, volume float64) error {
	idx, err := IndexOf(label, p.spec.Dimensions, p.spec.Orientation)
	if err != nil {
		return err
	}
	return p.fill(idx, component, volume)
}

func (p *Plate) fill(idx int, component string, volume float64) error {
	if volume < 0 || math.IsNaN(volume) || math.IsInf(volume, 0) {
		return fmt.Errorf("%w: %g of %s", ErrInvalidVolume, volume, component)
	}
	if volume == 0 {
		return nil
	}

	slot, exists := p.index[idx]
	var current float64
	if exists {
		current = p.wells[slot].Total()
	}
	if current+volume > p.spec.WellCapacity+Epsilon {
		l, _ := LabelOf(idx, p.spec.Dimensions, p.spec.Orientation)
		return fmt.Errorf("%w: %s holds %g, adding %g of %s exceeds %g",
			ErrCapacityExceeded, l, current, volume, component, p.spec.WellCapacity)
	}

	if !exists {
		l, _ := LabelOf(idx, p.spec.Dimensions, p.spec.Orientation)
		slot = len(p.wells)
		p.wells = append(p.wells, Well{Label: l, Index: idx})
		p.index[idx] = slot
	}
	w := &p.wells[slot]
	for i := range w.Contents {
		if w.Contents[i].Component == component {
			w.Contents[i].Volume += volume
			return nil
		}
	}
	w.Contents = append(w.Contents, Content{Component: component, Volume: volume})
	return nil
}

// Well returns the labelled well and whether it holds anything.
func (p *Plate) Well(label WellLabel) (Well, bool) {
	idx, err := IndexOf(label, p.spec.Dimensions, p.spec.Orientation)
	if err != nil {
		return Well{}, false
	}
	slot, ok := p.index[idx]
	if !ok {
		return Well{}, false
	}
	return copyWell(p.wells[slot]), true
}

// WellVolume returns the total volume in the labelled well.
func (p *Plate) WellVolume(label WellLabel) (float64, error) {
	idx, err := IndexOf(label, p.spec.Dimensions, p.spec.Orientation)
	if err != nil {
		return 0, err
	}
	slot, ok := p.index[idx]
	if !ok {
		return 0, nil
	}
	return p.wells[slot].Total(), nil
}

// Wells returns copies of the occupied wells in address order.
func (p *Plate) Wells() []Well {
	out := make([]Well, len(p.wells))
	for i, w := range p.wells {
		out[i] = copyWell(w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Len returns the number of occupied wells.
func (p *Plate) Len() int { return len(p.wells) }

// IsEmpty reports whether no well holds anything.
func (p *Plate) IsEmpty() bool { return len(p.wells) == 0 }

// Components returns every component on the plate in first-appearance order,
// walking wells in address order.
func (p *Plate) Components() []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range p.Wells() {
		for _, c := range w.Contents {
			if !seen[c.Component] {
				seen[c.Component] = true
				out = append(out, c.Component)
			}
		}
	}
	return out
}

// Clone returns a deep copy of the plate, cursor included.
func (p *Plate) Clone() *Plate {
	c := &Plate{
		spec:   p.spec,
		cursor: p.cursor,
		wells:  make([]Well, len(p.wells)),
		index:  make(map[int]int, len(p.index)),
	}
	for i, w := range p.wells {
		c.wells[i] = copyWell(w)
	}
	for k, v := range p.index {
		c.index[k] = v
	}
	return c
}

// Equal reports whether two plates have the same dimensions, dead volume,
// capacity and well contents. Cursor, orientation and the order components
// were written in are not compared.
func (p *Plate) Equal(o *Plate) bool {
	if p.spec.Dimensions != o.spec.Dimensions ||
		p.spec.DeadVolume != o.spec.DeadVolume ||
		p.spec.WellCapacity != o.spec.WellCapacity ||
		len(p.wells) != len(o.wells) {
		return false
	}
	for _, w := range p.wells {
		ow, ok := o.Well(w.Label)
		if !ok || len(ow.Contents) != len(w.Contents) {
			return false
		}
		for _, c := range w.Contents {
			if math.Abs(ow.Volume(c.Component)-c.Volume) > Epsilon {
				return false
			}
		}
	}
	return true
}

func copyWell(w Well) Well {
	contents := make([]Content, len(w.Contents))
	copy(contents, w.Contents)
	w.Contents = contents
	return w
}

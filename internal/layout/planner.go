// Package layout places replicated sample recipes into destination plates and
// tops each well up to the target volume with diluent.
package layout

import (
	"errors"
	"fmt"

	"github.com/dyluth/echoplan/pkg/plate"
)

// DefaultDiluent is the component name used for make-up volume when none is configured.
const DefaultDiluent = "water"

// Sample is one destination-well recipe before diluent: component volumes in
// table column order.
type Sample []plate.Content

// Total returns the summed component volume of the sample.
func (s Sample) Total() float64 {
	var total float64
	for _, c := range s {
		total += c.Volume
	}
	return total
}

// Options configures a destination planning pass.
type Options struct {
	Plate        plate.Spec
	TargetVolume float64
	Replicates   int
	StartWell    plate.WellLabel
	Diluent      string
}

// Assignment records where one replicated sample was placed.
type Assignment struct {
	Replicate   int // zero-based replicate block
	SampleIndex int // zero-based index into the input samples
	PlateIndex  int // zero-based index into Result.Plates
	Well        plate.WellLabel
	Sample      Sample
	Diluent     float64
}

// Result is the outcome of a planning pass.
type Result struct {
	Plates      []*plate.Plate
	Assignments []Assignment
}

// NegativeDiluentError reports a sample whose components exceed the target volume.
type NegativeDiluentError struct {
	Replicate    int
	SampleIndex  int
	Total        float64
	TargetVolume float64
}

func (e *NegativeDiluentError) Error() string {
	return fmt.Sprintf("sample %d (replicate %d): components total %g exceeds target volume %g",
		e.SampleIndex+1, e.Replicate+1, e.Total, e.TargetVolume)
}

// Unwrap lets errors.Is match plate.ErrNegativeDiluent.
func (e *NegativeDiluentError) Unwrap() error {
	return plate.ErrNegativeDiluent
}

// Diluent returns targetVolume minus the sample's component total. It fails
// with plate.ErrNegativeDiluent when that would be negative.
func Diluent(s Sample, targetVolume float64) (float64, error) {
	d := targetVolume - s.Total()
	if d < -plate.Epsilon {
		return 0, fmt.Errorf("%w: components total %g exceeds target %g", plate.ErrNegativeDiluent, s.Total(), targetVolume)
	}
	if d < 0 {
		d = 0
	}
	return d, nil
}

// Validate checks every sample against the target volume and returns one
// NegativeDiluentError per offending sample (replicate 0). It does not stop
// at the first failure so a caller can decide whether to drop or abort.
func Validate(samples []Sample, targetVolume float64) []*NegativeDiluentError {
	var out []*NegativeDiluentError
	for i, s := range samples {
		if _, err := Diluent(s, targetVolume); err != nil {
			out = append(out, &NegativeDiluentError{SampleIndex: i, Total: s.Total(), TargetVolume: targetVolume})
		}
	}
	return out
}

// Plan repeats samples opts.Replicates times, in input order within each
// replicate block, and assigns each to the next well in address order. The
// first plate starts at opts.StartWell; every further plate starts at its own
// first well. Each well receives the sample's components followed by the
// diluent.
//
// Plan stops at the first sample whose components exceed the target volume
// and returns a *NegativeDiluentError; no well is assigned for that sample.
func Plan(samples []Sample, opts Options) (*Result, error) {
	if opts.Replicates < 1 {
		return nil, fmt.Errorf("replicates must be >= 1, got %d", opts.Replicates)
	}
	if opts.TargetVolume <= 0 {
		return nil, fmt.Errorf("target volume must be > 0, got %g", opts.TargetVolume)
	}
	diluentName := opts.Diluent
	if diluentName == "" {
		diluentName = DefaultDiluent
	}

	current, err := plate.New(opts.Plate)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return &Result{}, nil
	}
	if opts.StartWell.Row != "" {
		if err := current.SetCursor(opts.StartWell); err != nil {
			return nil, fmt.Errorf("start well: %w", err)
		}
	}

	result := &Result{Plates: []*plate.Plate{current}}
	placed := 0

	for r := 0; r < opts.Replicates; r++ {
		for i, s := range samples {
			diluent, err := Diluent(s, opts.TargetVolume)
			if err != nil {
				return nil, &NegativeDiluentError{Replicate: r, SampleIndex: i, Total: s.Total(), TargetVolume: opts.TargetVolume}
			}

			// Move to the next well, opening a new plate once this one is full.
			if placed > 0 {
				if err := current.AdvanceCursor(); err != nil {
					if !errors.Is(err, plate.ErrOutOfRange) {
						return nil, err
					}
					current, err = plate.New(opts.Plate)
					if err != nil {
						return nil, err
					}
					result.Plates = append(result.Plates, current)
				}
			}

			well := current.CursorLabel()
			for _, c := range s {
				if c.Component == diluentName {
					return nil, fmt.Errorf("sample %d: component %q collides with the diluent name", i+1, c.Component)
				}
				if err := current.FillWell(c.Component, c.Volume); err != nil {
					return nil, fmt.Errorf("sample %d (replicate %d) in %s: %w", i+1, r+1, well, err)
				}
			}
			if err := current.FillWell(diluentName, diluent); err != nil {
				return nil, fmt.Errorf("sample %d (replicate %d) in %s: %w", i+1, r+1, well, err)
			}

			result.Assignments = append(result.Assignments, Assignment{
				Replicate:   r,
				SampleIndex: i,
				PlateIndex:  len(result.Plates) - 1,
				Well:        well,
				Sample:      s,
				Diluent:     diluent,
			})
			placed++
		}
	}

	return result, nil
}

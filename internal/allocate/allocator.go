// Package allocate stages reagents into source-plate wells.
//
// Each component's total requirement is cut into per-well chunks no larger
// than the component's effective capacity, and the chunks are laid into wells
// in address order with a first-fit cursor. Every well also carries the dead
// volume on top of its usable chunk. The packing is deterministic: the same
// requirements and configuration always produce the same wells.
package allocate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/dyluth/echoplan/pkg/plate"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ComponentOptions overrides the allocator defaults for one component.
type ComponentOptions struct {
	DeadVolume   *float64 // nil uses Config.Plate.DeadVolume
	WellCapacity *float64 // nil uses Config.Plate.WellCapacity
	ExtraWells   int      // spread the requirement over (1+ExtraWells) times as many wells
	NewColumn    bool     // start the component at the top of a fresh column, including past a mid-column start well
}

// Config configures an Allocator.
type Config struct {
	// Plate is the source plate type. Its dead volume and well capacity are the
	// defaults for components without overrides.
	Plate     plate.Spec
	StartWell plate.WellLabel
	// Components holds per-component overrides keyed by component name.
	Components map[string]ComponentOptions
}

// Requirement is the usable volume of one component that must be staged.
type Requirement struct {
	Component string
	Volume    float64
}

// Placement is one source well holding a component.
type Placement struct {
	PlateIndex int
	Well       plate.WellLabel
	Usable     float64
	Dead       float64
}

// Committed returns the stored volume: usable plus dead.
func (p Placement) Committed() float64 {
	return p.Usable + p.Dead
}

// Allocation lists the wells staged for one component, in allocation order.
type Allocation struct {
	Component string
	Wells     []Placement
}

// Usable returns the summed usable volume across the component's wells.
func (a Allocation) Usable() float64 {
	var total float64
	for _, w := range a.Wells {
		total += w.Usable
	}
	return total
}

// Result holds the source plates and per-component allocations of one run.
type Result struct {
	Plates      []*plate.Plate
	Allocations []Allocation
}

// Allocator packs requirements into source plates.
type Allocator struct {
	cfg    Config
	spec   plate.Spec
	logger *zap.Logger
}

// resolved holds the effective settings for one component.
type resolved struct {
	dead       float64
	capacity   float64
	perWell    float64
	extraWells int
	newColumn  bool
}

// New validates the configuration and returns an Allocator. Any capacity at
// or below its dead volume, or any negative value, fails with
// plate.ErrInvalidCapacity before anything is allocated.
func New(cfg Config, logger *zap.Logger) (*Allocator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Plate.Validate(); err != nil {
		return nil, fmt.Errorf("source plate: %w", err)
	}

	// Physical plates must hold the largest per-component capacity.
	spec := cfg.Plate
	if spec.Orientation == "" {
		spec.Orientation = plate.Vertical
	}
	names := make([]string, 0, len(cfg.Components))
	for name := range cfg.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	a := &Allocator{cfg: cfg, logger: logger}
	for _, name := range names {
		r, err := a.resolve(name)
		if err != nil {
			return nil, err
		}
		spec.WellCapacity = math.Max(spec.WellCapacity, r.capacity)
	}
	if cfg.StartWell.Row != "" {
		if _, err := plate.IndexOf(cfg.StartWell, spec.Dimensions, spec.Orientation); err != nil {
			return nil, fmt.Errorf("start well: %w", err)
		}
	}
	a.spec = spec
	return a, nil
}

func (a *Allocator) resolve(component string) (resolved, error) {
	r := resolved{dead: a.cfg.Plate.DeadVolume, capacity: a.cfg.Plate.WellCapacity}
	if o, ok := a.cfg.Components[component]; ok {
		if o.DeadVolume != nil {
			r.dead = *o.DeadVolume
		}
		if o.WellCapacity != nil {
			r.capacity = *o.WellCapacity
		}
		if o.ExtraWells < 0 {
			return resolved{}, fmt.Errorf("component %q: extra wells must be >= 0, got %d", component, o.ExtraWells)
		}
		r.extraWells = o.ExtraWells
		r.newColumn = o.NewColumn
	}
	if err := plate.ValidateCapacity(r.capacity, r.dead); err != nil {
		return resolved{}, fmt.Errorf("component %q: %w", component, err)
	}
	r.perWell = (r.capacity - r.dead) / float64(1+r.extraWells)
	return r, nil
}

// Chunks splits a requirement into usable per-well volumes no larger than
// perWell. The chunks sum to volume; a floating-point residue below
// plate.Epsilon is dropped rather than given a well of its own.
func Chunks(volume, perWell float64) []float64 {
	if volume <= plate.Epsilon {
		return nil
	}
	n := math.Floor(volume / perWell)
	rem := volume - n*perWell
	if rem < plate.Epsilon {
		rem = 0
	}
	out := make([]float64, 0, int(n)+1)
	for i := 0; i < int(n); i++ {
		out = append(out, perWell)
	}
	if rem > 0 {
		out = append(out, rem)
	}
	return out
}

// Allocate stages each requirement in the given order. Chunking runs
// concurrently per component; placement is sequential so the wells follow
// the requirement order exactly.
func (a *Allocator) Allocate(ctx context.Context, reqs []Requirement) (*Result, error) {
	settings := make([]resolved, len(reqs))
	chunks := make([][]float64, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if req.Volume < 0 || math.IsNaN(req.Volume) || math.IsInf(req.Volume, 0) {
				return fmt.Errorf("component %q: %w: %g", req.Component, plate.ErrInvalidVolume, req.Volume)
			}
			r, err := a.resolve(req.Component)
			if err != nil {
				return err
			}
			settings[i] = r
			chunks[i] = Chunks(req.Volume, r.perWell)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	var current *plate.Plate
	full := false

	openPlate := func() error {
		p, err := plate.New(a.spec)
		if err != nil {
			return err
		}
		if current == nil && a.cfg.StartWell.Row != "" {
			if err := p.SetCursor(a.cfg.StartWell); err != nil {
				return err
			}
		}
		current = p
		full = false
		res.Plates = append(res.Plates, p)
		return nil
	}

	for i, req := range reqs {
		if len(chunks[i]) == 0 {
			continue
		}
		r := settings[i]

		if current == nil {
			if err := openPlate(); err != nil {
				return nil, err
			}
		}
		// A start well part way down a column also counts as a shared column.
		if r.newColumn && !full {
			if err := current.AdvanceToNextLine(); err != nil {
				if !errors.Is(err, plate.ErrOutOfRange) {
					return nil, err
				}
				full = true
			}
		}

		alloc := Allocation{Component: req.Component}
		for _, usable := range chunks[i] {
			if full {
				if err := openPlate(); err != nil {
					return nil, err
				}
			}
			well := current.CursorLabel()
			if err := current.FillWell(req.Component, usable+r.dead); err != nil {
				return nil, fmt.Errorf("component %q in %s: %w", req.Component, well, err)
			}
			alloc.Wells = append(alloc.Wells, Placement{
				PlateIndex: len(res.Plates) - 1,
				Well:       well,
				Usable:     usable,
				Dead:       r.dead,
			})
			if err := current.AdvanceCursor(); err != nil {
				if !errors.Is(err, plate.ErrOutOfRange) {
					return nil, err
				}
				full = true
			}
		}

		a.logger.Debug("Allocated source wells",
			zap.String("component", req.Component),
			zap.Float64("volume", req.Volume),
			zap.Float64("per_well", r.perWell),
			zap.Int("wells", len(alloc.Wells)))
		res.Allocations = append(res.Allocations, alloc)
	}

	return res, nil
}

// Aggregate sums each component's volume across the destination plates, in
// first-appearance order.
func Aggregate(plates []*plate.Plate) []Requirement {
	summary := plate.VolumeSummaryByComponent(plates)
	out := make([]Requirement, len(summary))
	for i, c := range summary {
		out[i] = Requirement{Component: c.Component, Volume: c.Volume}
	}
	return out
}

// Order moves the named components to the front, in the given order, keeping
// the remaining requirements in their existing order. Unknown names are ignored.
func Order(reqs []Requirement, order []string) []Requirement {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		if _, dup := rank[name]; !dup {
			rank[name] = i
		}
	}
	out := make([]Requirement, len(reqs))
	copy(out, reqs)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i].Component]
		rj, jok := rank[out[j].Component]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}

// Package transfer compiles source and destination plate layouts into an
// ordered list of liquid-transfer instructions.
package transfer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dyluth/echoplan/pkg/plate"
	"go.uber.org/zap"
)

// ErrNoSource indicates a destination component that no source plate holds.
var ErrNoSource = errors.New("transfer: no source well holds component")

// ErrInsufficientSource indicates source wells that together hold less usable
// volume of a component than the destinations draw.
var ErrInsufficientSource = errors.New("transfer: not enough usable volume in source wells")

// Options configures a Compiler.
type Options struct {
	PlateTypes PlateTypes
	// MaxVolume caps a single transfer; 0 disables splitting.
	MaxVolume float64
	// MinVolume is the largest split remainder that is merged into the
	// preceding transfer instead of being emitted on its own.
	MinVolume float64
	// DeadVolumes overrides the source plate's dead volume per component
	// when working out how much a source well can give.
	DeadVolumes map[string]float64
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.PlateTypes.Default == "" {
		return fmt.Errorf("a default source plate type is required")
	}
	if o.MaxVolume < 0 || o.MinVolume < 0 {
		return fmt.Errorf("max volume %g and min volume %g must not be negative", o.MaxVolume, o.MinVolume)
	}
	if o.MaxVolume > 0 && o.MinVolume >= o.MaxVolume {
		return fmt.Errorf("min volume %g must be below max volume %g", o.MinVolume, o.MaxVolume)
	}
	return nil
}

// Compiler turns plate layouts into instructions. It holds no state between
// calls, so compiling the same plates twice yields identical output.
type Compiler struct {
	opts   Options
	logger *zap.Logger
}

// NewCompiler validates opts and returns a Compiler.
func NewCompiler(opts Options, logger *zap.Logger) (*Compiler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{opts: opts, logger: logger}, nil
}

// sourceRef is the wells of one source plate holding a component, with the
// usable volume not yet drawn by earlier transfers.
type sourceRef struct {
	plate    string
	location SourceLocation
	usable   float64
}

// sourceChain holds a component's source plates in plate order.
type sourceChain struct {
	refs []sourceRef
	next int
}

type draw struct {
	ref    *sourceRef
	volume float64
}

// take draws volume from the current plate, moving on to the next plate once
// the current one is exhausted. A transfer larger than what is left on the
// current plate is split between it and the following plates.
func (s *sourceChain) take(volume float64) ([]draw, error) {
	var out []draw
	for remaining := volume; remaining > 0; {
		if s.next == len(s.refs) {
			if remaining <= plate.Epsilon {
				break
			}
			return nil, ErrInsufficientSource
		}
		ref := &s.refs[s.next]
		if ref.usable <= plate.Epsilon {
			s.next++
			continue
		}
		v := math.Min(remaining, ref.usable)
		if remaining-v <= plate.Epsilon {
			v = remaining
		}
		out = append(out, draw{ref: ref, volume: v})
		ref.usable -= v
		remaining -= v
	}
	return out, nil
}

// Compile emits one or more instructions for every destination well and
// component with a positive volume, walking destination plates in order,
// wells in address order and components within a well in name order.
//
// A component held by several wells of one source plate is drawn from an
// aggregate of those wells. Source plates are drained in order: each
// instruction names a single plate, and a transfer the current plate cannot
// cover in full takes what is left there and the rest from the next plate.
func (c *Compiler) Compile(sources, destinations []NamedPlate) ([]Instruction, error) {
	chains := c.indexSources(sources)

	var out []Instruction
	for _, dest := range destinations {
		for _, w := range dest.Plate.Wells() {
			for _, content := range byComponent(w.Contents) {
				if content.Volume <= 0 {
					continue
				}
				chain, ok := chains[content.Component]
				if !ok {
					return nil, fmt.Errorf("%w: %q needed in %s %s", ErrNoSource, content.Component, dest.Name, w.Label)
				}
				draws, err := chain.take(content.Volume)
				if err != nil {
					return nil, fmt.Errorf("%w: %q needed in %s %s", err, content.Component, dest.Name, w.Label)
				}
				for _, d := range draws {
					for _, v := range Split(d.volume, c.opts.MaxVolume, c.opts.MinVolume) {
						out = append(out, Instruction{
							SourcePlate:      d.ref.plate,
							SourcePlateType:  c.opts.PlateTypes.For(content.Component),
							SourceWell:       d.ref.location,
							DestinationPlate: dest.Name,
							DestinationWell:  w.Label,
							Volume:           v,
							Component:        content.Component,
						})
					}
				}
			}
		}
	}
	return out, nil
}

func byComponent(contents []plate.Content) []plate.Content {
	out := make([]plate.Content, len(contents))
	copy(out, contents)
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

func (c *Compiler) deadVolume(component string, p *plate.Plate) float64 {
	if v, ok := c.opts.DeadVolumes[component]; ok {
		return v
	}
	return p.DeadVolume()
}

func (c *Compiler) indexSources(sources []NamedPlate) map[string]*sourceChain {
	chains := make(map[string]*sourceChain)

	for _, src := range sources {
		labels := make(map[string][]plate.WellLabel)
		usable := make(map[string]float64)
		var order []string
		for _, w := range src.Plate.Wells() {
			for _, content := range w.Contents {
				if content.Volume <= 0 {
					continue
				}
				if _, seen := labels[content.Component]; !seen {
					order = append(order, content.Component)
				}
				labels[content.Component] = append(labels[content.Component], w.Label)
				usable[content.Component] += math.Max(0, content.Volume-c.deadVolume(content.Component, src.Plate))
			}
		}
		for _, component := range order {
			chain, ok := chains[component]
			if !ok {
				chain = &sourceChain{}
				chains[component] = chain
			}
			chain.refs = append(chain.refs, sourceRef{
				plate:    src.Name,
				location: MultiWell(labels[component]),
				usable:   usable[component],
			})
		}
	}

	for component, chain := range chains {
		if len(chain.refs) > 1 {
			names := make([]string, len(chain.refs))
			for i, r := range chain.refs {
				names[i] = r.plate
			}
			c.logger.Debug("Component spans several source plates",
				zap.String("component", component),
				zap.Strings("plates", names))
		}
	}
	return chains
}

// Split breaks volume into transfers no larger than max. The remainder after
// the full-size transfers is emitted on its own when it exceeds min, and
// otherwise added to the last full-size transfer. A max of 0 disables splitting.
//
// Merging never drops the full-size transfers before it: 1030 with max 500
// and min 50 yields [500, 530], not a lone 530. The merged transfer may
// therefore exceed max by up to min.
func Split(volume, maxVolume, minVolume float64) []float64 {
	if maxVolume <= 0 || volume <= maxVolume {
		return []float64{volume}
	}
	n := int(math.Floor(volume / maxVolume))
	rem := volume - float64(n)*maxVolume
	if rem < plate.Epsilon {
		rem = 0
	}

	out := make([]float64, n, n+1)
	for i := range out {
		out[i] = maxVolume
	}
	switch {
	case rem == 0:
	case rem > minVolume:
		out = append(out, rem)
	default:
		out[n-1] += rem
	}
	return out
}

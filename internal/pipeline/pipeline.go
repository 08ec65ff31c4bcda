// Package pipeline runs one planning pass end to end: destination layout,
// requirement aggregation, source allocation and transfer compilation.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dyluth/echoplan/internal/allocate"
	"github.com/dyluth/echoplan/internal/layout"
	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/dyluth/echoplan/pkg/plate"
	"go.uber.org/zap"
)

// Default plate name prefixes written into instructions.
const (
	DefaultDestinationPrefix = "Destination"
	DefaultSourcePrefix      = "Source"
)

// Options configures a run.
type Options struct {
	Destination layout.Options
	Source      allocate.Config
	// SourceOrder moves the named components to the front of the allocation order.
	SourceOrder []string
	Transfer    transfer.Options
	// DispenseOrder reorders the compiled instructions by component.
	DispenseOrder []string
	// Groups partitions the instructions into batches. Empty means one batch.
	Groups []transfer.Group

	DestinationPrefix string
	SourcePrefix      string

	// DropNegativeDiluent removes samples whose components exceed the target
	// volume instead of aborting the run.
	DropNegativeDiluent bool
}

// Prefixes returns the destination and source plate name prefixes, defaulted.
func (o Options) Prefixes() (dst, src string) {
	dst, src = o.DestinationPrefix, o.SourcePrefix
	if dst == "" {
		dst = DefaultDestinationPrefix
	}
	if src == "" {
		src = DefaultSourcePrefix
	}
	return dst, src
}

// Result holds every intermediate and final product of a run.
type Result struct {
	Layout       *layout.Result
	Requirements []allocate.Requirement
	Sources      *allocate.Result

	DestinationPlates []transfer.NamedPlate
	SourcePlates      []transfer.NamedPlate

	Instructions []transfer.Instruction
	Batches      []transfer.Batch

	// Summary is the per-component volume across the destination plates.
	Summary []plate.Content
	// Dropped lists the samples removed under the drop policy, indexed
	// against the input samples.
	Dropped []*layout.NegativeDiluentError
}

// Run plans samples into destination plates, stages their requirements into
// source plates and compiles the transfers between them. Any stage failure
// aborts the run and no partial result is returned.
func Run(ctx context.Context, samples []layout.Sample, opts Options, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	res := &Result{}

	// Validate the allocator and compiler options before any planning.
	alloc, err := allocate.New(opts.Source, logger)
	if err != nil {
		return nil, fmt.Errorf("source allocator: %w", err)
	}
	compiler, err := transfer.NewCompiler(opts.Transfer, logger)
	if err != nil {
		return nil, fmt.Errorf("transfer compiler: %w", err)
	}

	if opts.DropNegativeDiluent {
		samples = keepValid(samples, opts.Destination.TargetVolume, res, logger)
	}

	logger.Info("Planning destination plates",
		zap.Int("samples", len(samples)),
		zap.Int("replicates", opts.Destination.Replicates),
		zap.Float64("target_volume", opts.Destination.TargetVolume))
	res.Layout, err = layout.Plan(samples, opts.Destination)
	if err != nil {
		return nil, fmt.Errorf("destination layout: %w", err)
	}

	res.Requirements = allocate.Order(allocate.Aggregate(res.Layout.Plates), opts.SourceOrder)
	logger.Info("Allocating source wells",
		zap.Int("destination_plates", len(res.Layout.Plates)),
		zap.Int("components", len(res.Requirements)))
	res.Sources, err = alloc.Allocate(ctx, res.Requirements)
	if err != nil {
		return nil, fmt.Errorf("source allocation: %w", err)
	}

	dstPrefix, srcPrefix := opts.Prefixes()
	res.DestinationPlates = transfer.NamePlates(dstPrefix, res.Layout.Plates)
	res.SourcePlates = transfer.NamePlates(srcPrefix, res.Sources.Plates)

	res.Instructions, res.Batches, err = compile(compiler, res.SourcePlates, res.DestinationPlates, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("Compiled transfers",
		zap.Int("source_plates", len(res.SourcePlates)),
		zap.Int("instructions", len(res.Instructions)),
		zap.Int("batches", len(res.Batches)))

	res.Summary = plate.VolumeSummaryByComponent(res.Layout.Plates)
	return res, nil
}

// Compile turns existing plate layouts into instructions and batches without
// re-planning, applying the same dispense order and grouping as Run.
func Compile(sources, destinations []*plate.Plate, opts Options, logger *zap.Logger) ([]transfer.Instruction, []transfer.Batch, error) {
	compiler, err := transfer.NewCompiler(opts.Transfer, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("transfer compiler: %w", err)
	}
	dstPrefix, srcPrefix := opts.Prefixes()
	return compile(compiler, transfer.NamePlates(srcPrefix, sources), transfer.NamePlates(dstPrefix, destinations), opts)
}

func compile(c *transfer.Compiler, sources, destinations []transfer.NamedPlate, opts Options) ([]transfer.Instruction, []transfer.Batch, error) {
	instructions, err := c.Compile(sources, destinations)
	if err != nil {
		return nil, nil, fmt.Errorf("transfer compilation: %w", err)
	}
	if len(opts.DispenseOrder) > 0 {
		instructions = transfer.ReorderByComponent(instructions, opts.DispenseOrder)
	}
	var batches []transfer.Batch
	if len(opts.Groups) > 0 {
		batches = transfer.SplitByComponentGroups(instructions, opts.Groups)
	}
	return instructions, batches, nil
}

func keepValid(samples []layout.Sample, target float64, res *Result, logger *zap.Logger) []layout.Sample {
	bad := layout.Validate(samples, target)
	if len(bad) == 0 {
		return samples
	}
	skip := make(map[int]bool, len(bad))
	for _, e := range bad {
		skip[e.SampleIndex] = true
		logger.Warn("Dropping sample whose components exceed the target volume",
			zap.Int("sample", e.SampleIndex+1),
			zap.Float64("total", e.Total),
			zap.Float64("target_volume", e.TargetVolume))
	}
	res.Dropped = bad
	kept := make([]layout.Sample, 0, len(samples)-len(bad))
	for i, s := range samples {
		if !skip[i] {
			kept = append(kept, s)
		}
	}
	return kept
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dyluth/echoplan/internal/config"
	"github.com/dyluth/echoplan/internal/layout"
	"github.com/dyluth/echoplan/internal/pipeline"
	"github.com/dyluth/echoplan/internal/printer"
	"github.com/dyluth/echoplan/internal/report"
	"github.com/dyluth/echoplan/internal/store"
	"github.com/dyluth/echoplan/internal/table"
	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/dyluth/echoplan/pkg/plate"
	"github.com/spf13/cobra"
)

var (
	planSamples string
	planOut     string
	planSave    bool
	planName    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan destination plates, source plates and transfers",
	Long: `Plan a full run from a sample table.

Each sample row is replicated, placed into destination wells and topped up
to the target volume with diluent. The summed requirement of every component
is staged into source-plate wells, and one or more transfer instructions are
compiled for each destination well and component.

Writes into --out:
  destination_layout.csv   - Plate, Well, Component, Volume for every destination well
  source_layout.csv        - the same for the source plates
  instructions.csv         - the transfer list (one file per group when groups are configured)
  summary.csv              - total volume per component
  destination_plates.json  - destination plate records, input to "echoplan compile"
  source_plates.json       - source plate records

Examples:
  # Plan with the default echoplan.yml
  echoplan plan --samples samples.csv

  # Write outputs elsewhere and keep the run in the configured store
  echoplan plan --samples screen.tsv --out runs/screen --save --name screen-1`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planSamples, "samples", "s", "", "Sample table (CSV or TSV)")
	planCmd.Flags().StringVarP(&planOut, "out", "o", ".", "Directory for output files")
	planCmd.Flags().BoolVar(&planSave, "save", false, "Save the run to the configured store")
	planCmd.Flags().StringVar(&planName, "name", "", "Run name when saving (default: sample file name)")
	_ = planCmd.MarkFlagRequired("samples")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), nil)
	}

	samples, err := table.ReadSamplesFile(planSamples)
	if err != nil {
		return printer.Error(
			"failed to read samples",
			err.Error(),
			[]string{"Sample tables need a header row of component names and one numeric column per component"},
		)
	}

	res, err := pipeline.Run(ctx, samples, opts, logger)
	if err != nil {
		return planFailure(err)
	}

	for _, d := range res.Dropped {
		printer.Warning("Dropped sample %d: components total %s nL exceed the target volume %s nL\n",
			d.SampleIndex+1, table.FormatVolume(d.Total), table.FormatVolume(d.TargetVolume))
	}

	written, err := writePlanOutputs(planOut, res)
	if err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	report.FormatSummary(out, res.Summary)
	fmt.Fprintln(out)

	printer.Success("Planned %d sample(s) into %d destination and %d source plate(s) with %d transfer(s)\n",
		len(samples)-len(res.Dropped), len(res.DestinationPlates), len(res.SourcePlates), len(res.Instructions))
	for _, path := range written {
		printer.Step("%s\n", path)
	}

	if planSave {
		return saveRun(ctx, cfg, runName(), res)
	}
	return nil
}

// writePlanOutputs writes every plan output into dir
func writePlanOutputs(dir string, res *pipeline.Result) ([]string, error) {
	var written []string

	paths, err := writePlates(dir, DestinationLayoutFile, DestinationPlatesFile, res.DestinationPlates)
	if err != nil {
		return nil, err
	}
	written = append(written, paths...)

	paths, err = writePlates(dir, SourceLayoutFile, SourcePlatesFile, res.SourcePlates)
	if err != nil {
		return nil, err
	}
	written = append(written, paths...)

	paths, err = writeInstructions(dir, res.Instructions, res.Batches)
	if err != nil {
		return nil, err
	}
	written = append(written, paths...)

	summaryPath := filepath.Join(dir, SummaryFile)
	if err := table.WriteSummaryFile(summaryPath, res.Summary); err != nil {
		return nil, err
	}
	return append(written, summaryPath), nil
}

func saveRun(ctx context.Context, cfg *config.EchoplanConfig, name string, res *pipeline.Result) error {
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	run := store.NewRun(name, plates(res.DestinationPlates), plates(res.SourcePlates), res.Instructions)
	if err := s.SaveRun(ctx, run); err != nil {
		return printer.ErrorWithContext(
			"failed to save run",
			err.Error(),
			[][2]string{{"Backend", cfg.Store.Backend}},
			nil,
		)
	}
	printer.Success("Saved run %s (%s)\n", run.ID[:8], name)
	return nil
}

// runName defaults the run name to the sample file name without extension
func runName() string {
	if planName != "" {
		return planName
	}
	base := filepath.Base(planSamples)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// planFailure explains a failed pipeline run
func planFailure(err error) error {
	var negative *layout.NegativeDiluentError
	switch {
	case errors.As(err, &negative):
		return printer.ErrorWithContext(
			"sample exceeds the target volume",
			"The components of a sample add up to more than the well's target volume, so no diluent can be added.",
			[][2]string{
				{"Sample", strconv.Itoa(negative.SampleIndex + 1)},
				{"Components total", table.FormatVolume(negative.Total) + " nL"},
				{"Target volume", table.FormatVolume(negative.TargetVolume) + " nL"},
			},
			[]string{
				"Lower the sample's component volumes",
				"Raise destination.target_volume in echoplan.yml",
				"Skip such samples:\n     on_negative_diluent: drop",
			},
		)
	case errors.Is(err, plate.ErrInvalidCapacity):
		return printer.Error(
			"invalid plate capacity",
			err.Error(),
			[]string{"Every well capacity must exceed its dead volume, and neither may be negative"},
		)
	case errors.Is(err, plate.ErrCapacityExceeded):
		return printer.Error(
			"well capacity exceeded",
			err.Error(),
			[]string{"Raise the plate's well_capacity or lower the volumes"},
		)
	case errors.Is(err, transfer.ErrNoSource):
		return printer.Error("no source for component", err.Error(), nil)
	case errors.Is(err, transfer.ErrInsufficientSource):
		return printer.Error("source plates hold too little of a component", err.Error(),
			[]string{"Check the source plate files match the destination plates"})
	}
	return printer.Error("planning failed", err.Error(), nil)
}

package commands

import (
	"fmt"

	"github.com/dyluth/echoplan/internal/allocate"
	"github.com/dyluth/echoplan/internal/printer"
	"github.com/dyluth/echoplan/internal/report"
	"github.com/dyluth/echoplan/internal/table"
	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/spf13/cobra"
)

var (
	allocateRequirements string
	allocateOut          string
)

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Stage component requirements into source plates",
	Long: `Stage a list of component requirements into source-plate wells.

The requirements table has a Component and a Volume column (nL of usable
volume). Dead volume, well capacity and per-component overrides come from
the source section of echoplan.yml.

Writes source_layout.csv and source_plates.json into --out.

Example:
  echoplan allocate --requirements requirements.csv --out build`,
	Args: cobra.NoArgs,
	RunE: runAllocate,
}

func init() {
	allocateCmd.Flags().StringVarP(&allocateRequirements, "requirements", "r", "", "Requirements table (CSV or TSV)")
	allocateCmd.Flags().StringVarP(&allocateOut, "out", "o", ".", "Directory for output files")
	_ = allocateCmd.MarkFlagRequired("requirements")
	rootCmd.AddCommand(allocateCmd)
}

func runAllocate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), nil)
	}

	reqs, err := table.ReadRequirementsFile(allocateRequirements)
	if err != nil {
		return printer.Error(
			"failed to read requirements",
			err.Error(),
			[]string{"Requirement tables need Component and Volume columns"},
		)
	}

	alloc, err := allocate.New(opts.Source, logger)
	if err != nil {
		return planFailure(err)
	}
	res, err := alloc.Allocate(cmd.Context(), allocate.Order(reqs, opts.SourceOrder))
	if err != nil {
		return planFailure(err)
	}

	_, srcPrefix := opts.Prefixes()
	named := transfer.NamePlates(srcPrefix, res.Plates)
	written, err := writePlates(allocateOut, SourceLayoutFile, SourcePlatesFile, named)
	if err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}

	report.FormatAllocations(cmd.OutOrStdout(), res.Allocations, named)
	printer.Success("Staged %d component(s) into %d source plate(s)\n", len(res.Allocations), len(res.Plates))
	for _, path := range written {
		printer.Step("%s\n", path)
	}
	return nil
}

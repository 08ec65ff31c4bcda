package commands

import (
	"fmt"

	"github.com/dyluth/echoplan/internal/pipeline"
	"github.com/dyluth/echoplan/internal/printer"
	"github.com/dyluth/echoplan/internal/report"
	"github.com/dyluth/echoplan/internal/table"
	"github.com/spf13/cobra"
)

var (
	compileSources      string
	compileDestinations string
	compileOut          string
	compilePrint        bool
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile transfers from existing plate layouts",
	Long: `Compile transfer instructions between plate record files without re-planning.

Plate record files are the destination_plates.json and source_plates.json
written by "echoplan plan", possibly edited by hand. Plate types, transfer
limits, dispense order and groups come from echoplan.yml.

Examples:
  echoplan compile --sources source_plates.json --destinations destination_plates.json

  # Also print the transfers
  echoplan compile --sources src.json --destinations dst.json --out build --print`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVar(&compileSources, "sources", "", "Source plate records (JSON)")
	compileCmd.Flags().StringVar(&compileDestinations, "destinations", "", "Destination plate records (JSON)")
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", ".", "Directory for instruction files")
	compileCmd.Flags().BoolVar(&compilePrint, "print", false, "Print the instructions as a table")
	_ = compileCmd.MarkFlagRequired("sources")
	_ = compileCmd.MarkFlagRequired("destinations")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), nil)
	}

	sources, err := table.ReadPlatesFile(compileSources)
	if err != nil {
		return printer.Error("failed to read source plates", err.Error(), nil)
	}
	destinations, err := table.ReadPlatesFile(compileDestinations)
	if err != nil {
		return printer.Error("failed to read destination plates", err.Error(), nil)
	}

	instructions, batches, err := pipeline.Compile(sources, destinations, opts, logger)
	if err != nil {
		return planFailure(err)
	}

	written, err := writeInstructions(compileOut, instructions, batches)
	if err != nil {
		return fmt.Errorf("failed to write instructions: %w", err)
	}

	if compilePrint {
		report.FormatInstructionsTable(cmd.OutOrStdout(), instructions)
	}
	printer.Success("Compiled %d transfer(s) from %d source and %d destination plate(s)\n",
		len(instructions), len(sources), len(destinations))
	for _, path := range written {
		printer.Step("%s\n", path)
	}
	return nil
}

package commands

import (
	"errors"
	"fmt"

	"github.com/dyluth/echoplan/internal/printer"
	"github.com/dyluth/echoplan/internal/report"
	"github.com/dyluth/echoplan/internal/resolver"
	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/spf13/cobra"
)

var (
	showJSON   bool
	showExport string
)

var showCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show a saved run",
	Long: `Show one saved run: its plates and every transfer.

RUN_ID may be the full UUID or a prefix of at least 6 characters.

Examples:
  echoplan show 3f9a2c
  echoplan show 3f9a2c --json
  # Re-create the run's plan files
  echoplan show 3f9a2c --export rerun/`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the run as JSON")
	showCmd.Flags().StringVar(&showExport, "export", "", "Write the run's plate records and instructions into this directory")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	shortID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	runID, err := resolver.ResolveRunID(ctx, s, shortID)
	if err != nil {
		var notFound *resolver.NotFoundError
		var ambiguous *resolver.AmbiguousError
		switch {
		case errors.As(err, &notFound):
			return printer.Error(
				fmt.Sprintf("run with ID '%s' not found", shortID),
				"No run matches the provided ID.",
				[]string{"List saved runs:\n  echoplan runs"},
			)
		case errors.As(err, &ambiguous):
			return printer.Error(
				fmt.Sprintf("ambiguous run ID '%s'", shortID),
				ambiguous.Describe(),
				[]string{"Use a longer prefix or the full ID"},
			)
		}
		return printer.Error("invalid run ID", err.Error(), nil)
	}

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	if showExport != "" {
		destinations, sources, err := run.Plates()
		if err != nil {
			return printer.Error("stored run is corrupt", err.Error(), nil)
		}
		opts, err := cfg.PipelineOptions()
		if err != nil {
			return printer.Error("invalid configuration", err.Error(), nil)
		}
		dstPrefix, srcPrefix := opts.Prefixes()
		var written []string
		paths, err := writePlates(showExport, DestinationLayoutFile, DestinationPlatesFile, transfer.NamePlates(dstPrefix, destinations))
		if err != nil {
			return fmt.Errorf("failed to export run: %w", err)
		}
		written = append(written, paths...)
		paths, err = writePlates(showExport, SourceLayoutFile, SourcePlatesFile, transfer.NamePlates(srcPrefix, sources))
		if err != nil {
			return fmt.Errorf("failed to export run: %w", err)
		}
		written = append(written, paths...)
		paths, err = writeInstructions(showExport, run.Instructions, nil)
		if err != nil {
			return fmt.Errorf("failed to export run: %w", err)
		}
		written = append(written, paths...)

		printer.Success("Exported run %s\n", run.ID[:8])
		for _, path := range written {
			printer.Step("%s\n", path)
		}
		return nil
	}

	if showJSON {
		return report.FormatSingleJSON(cmd.OutOrStdout(), run)
	}
	report.FormatRunDetail(cmd.OutOrStdout(), run)
	return nil
}

package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dyluth/echoplan/internal/config"
	"github.com/dyluth/echoplan/internal/printer"
	"github.com/dyluth/echoplan/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new echoplan project",
	Long: `Initialize a new echoplan project with a default configuration and an
example sample table.

Creates:
  • echoplan.yml - Plate geometry, volumes, transfer limits and run store
  • samples.csv  - One row per sample, one column per component (nL)

Use --force to reinitialize an existing project (WARNING: overwrites both files).`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite existing echoplan.yml and samples.csv")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to initialize")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	created, err := scaffold.Initialize(initDir, forceInit)
	if err != nil {
		var existing *scaffold.ExistingFilesError
		if errors.As(err, &existing) {
			return printer.Error(
				"project already initialized",
				fmt.Sprintf("Found existing %s in %s.", strings.Join(existing.Files, ", "), initDir),
				[]string{"Reinitialize (overwrites both files):\n  echoplan init --force"},
			)
		}
		return fmt.Errorf("initialization failed: %w", err)
	}

	printer.Success("Initialized echoplan project in %s\n\n", initDir)
	for _, path := range created {
		printer.Info("  %s\n", path)
	}
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Edit %s with your plate types and volumes\n", filepath.Join(initDir, config.DefaultPath))
	printer.Info("  2. Put your recipes in %s\n", filepath.Join(initDir, scaffold.SamplesFile))
	printer.Info("  3. Plan the run:\n     echoplan plan --samples %s\n", scaffold.SamplesFile)
	return nil
}

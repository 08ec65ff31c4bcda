package commands

import (
	"github.com/dyluth/echoplan/internal/printer"
	"github.com/dyluth/echoplan/internal/report"
	"github.com/dyluth/echoplan/internal/table"
	"github.com/dyluth/echoplan/pkg/plate"
	"github.com/spf13/cobra"
)

var summaryCSV string

var summaryCmd = &cobra.Command{
	Use:   "summary FILE...",
	Short: "Summarize component volumes across plate record files",
	Long: `Print the total volume of every component across one or more plate
record files, in first-appearance order. Does not read echoplan.yml.

Examples:
  echoplan summary destination_plates.json
  echoplan summary a.json b.json --csv totals.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryCSV, "csv", "", "Also write the summary to this CSV or TSV file")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	var all []*plate.Plate
	for _, path := range args {
		plates, err := table.ReadPlatesFile(path)
		if err != nil {
			return printer.Error("failed to read plates", err.Error(), nil)
		}
		all = append(all, plates...)
	}

	summary := plate.VolumeSummaryByComponent(all)
	report.FormatSummary(cmd.OutOrStdout(), summary)

	if summaryCSV != "" {
		if err := table.WriteSummaryFile(summaryCSV, summary); err != nil {
			return printer.Error("failed to write summary", err.Error(), nil)
		}
		printer.Step("%s\n", summaryCSV)
	}
	return nil
}

// Package report renders runs, instructions and volume summaries for the console.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/echoplan/internal/allocate"
	"github.com/dyluth/echoplan/internal/store"
	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/dyluth/echoplan/pkg/plate"
)

// FormatRunsTable writes runs as a table with columns ID, NAME, AGE,
// DEST, SRC and XFERS. Returns the number of runs formatted.
func FormatRunsTable(w io.Writer, runs []*store.Run, project string, now time.Time) int {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs found for project '%s'\n", project)
		return 0
	}

	fmt.Fprintf(w, "Runs for project '%s':\n\n", project)
	fmt.Fprintf(w, "%-10s %-24s %-8s %-5s %-5s %s\n", "ID", "NAME", "AGE", "DEST", "SRC", "XFERS")
	fmt.Fprintf(w, "%-10s %-24s %-8s %-5s %-5s %s\n", "----------", "------------------------", "--------", "-----", "-----", "-----")
	for _, r := range runs {
		fmt.Fprintf(w, "%-10s %-24s %-8s %-5d %-5d %d\n",
			formatID(r.ID),
			formatName(r.Name),
			formatAge(r.CreatedAtMs, now),
			len(r.Destinations),
			len(r.Sources),
			len(r.Instructions),
		)
	}

	noun := "run"
	if len(runs) != 1 {
		noun = "runs"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(runs), noun)
	return len(runs)
}

// FormatJSONL writes each run as one compact JSON object per line.
func FormatJSONL(w io.Writer, runs []*store.Run) error {
	for _, r := range runs {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal run to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes v as indented JSON followed by a newline.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}

// FormatRunDetail writes a run header followed by its instruction table.
func FormatRunDetail(w io.Writer, r *store.Run) {
	fmt.Fprintf(w, "Run:          %s\n", r.ID)
	fmt.Fprintf(w, "Name:         %s\n", formatName(r.Name))
	fmt.Fprintf(w, "Created:      %s\n", r.CreatedAt().UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Destinations: %d plate(s)\n", len(r.Destinations))
	fmt.Fprintf(w, "Sources:      %d plate(s)\n\n", len(r.Sources))
	FormatInstructionsTable(w, r.Instructions)
}

// FormatInstructionsTable writes instructions as an aligned table.
func FormatInstructionsTable(w io.Writer, instructions []transfer.Instruction) {
	if len(instructions) == 0 {
		fmt.Fprintln(w, "No transfers")
		return
	}
	fmt.Fprintf(w, "%-16s %-12s %-18s %-16s %-5s %10s  %s\n",
		"SOURCE", "TYPE", "WELL", "DESTINATION", "WELL", "VOLUME", "COMPONENT")
	for _, in := range instructions {
		fmt.Fprintf(w, "%-16s %-12s %-18s %-16s %-5s %10s  %s\n",
			in.SourcePlate,
			in.SourcePlateType,
			truncate(in.SourceWell.String(), 18),
			in.DestinationPlate,
			in.DestinationWell,
			formatVolume(in.Volume),
			in.Component,
		)
	}
	fmt.Fprintf(w, "\n%d transfer(s)\n", len(instructions))
}

// FormatSummary writes the per-component volume summary and its total.
func FormatSummary(w io.Writer, summary []plate.Content) {
	if len(summary) == 0 {
		fmt.Fprintln(w, "No components")
		return
	}
	width := len("TOTAL")
	for _, c := range summary {
		width = max(width, len(c.Component))
	}
	fmt.Fprintf(w, "%-*s %14s\n", width, "COMPONENT", "VOLUME")
	for _, c := range summary {
		fmt.Fprintf(w, "%-*s %14s\n", width, c.Component, formatVolume(c.Volume))
	}
	fmt.Fprintf(w, "%-*s %14s\n", width, "TOTAL", formatVolume(plate.SummaryTotal(summary)))
}

// formatID truncates a run ID to its first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatName(name string) string {
	if name == "" {
		return "-"
	}
	return truncate(name, 24)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func formatVolume(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// formatAge renders a millisecond timestamp relative to now, e.g. "2m ago".
func formatAge(timestampMs int64, now time.Time) string {
	if timestampMs == 0 {
		return "-"
	}
	diff := now.Sub(time.UnixMilli(timestampMs))
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

// FormatAllocations writes one row per staged source well, grouped by
// component in allocation order. plates names the source plates by index.
func FormatAllocations(w io.Writer, allocations []allocate.Allocation, plates []transfer.NamedPlate) {
	if len(allocations) == 0 {
		fmt.Fprintln(w, "No components")
		return
	}
	fmt.Fprintf(w, "%-16s %-16s %-5s %12s %12s\n", "COMPONENT", "PLATE", "WELL", "USABLE", "DEAD")
	for _, a := range allocations {
		for _, p := range a.Wells {
			name := fmt.Sprintf("#%d", p.PlateIndex+1)
			if p.PlateIndex < len(plates) {
				name = plates[p.PlateIndex].Name
			}
			fmt.Fprintf(w, "%-16s %-16s %-5s %12s %12s\n",
				truncate(a.Component, 16), name, p.Well, formatVolume(p.Usable), formatVolume(p.Dead))
		}
	}
	fmt.Fprintln(w)
}

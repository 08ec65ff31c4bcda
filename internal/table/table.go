// Package table reads sample and requirement tables and writes instruction and
// plate-layout tables, as comma- or tab-separated text.
package table

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Delimiters.
const (
	Comma = ','
	Tab   = '\t'
)

// DelimiterForPath returns Tab for .tsv and .txt files and Comma otherwise.
func DelimiterForPath(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt", ".tab":
		return Tab
	}
	return Comma
}

// DetectDelimiter picks the separator from a header line: Tab when the line
// holds tabs and no commas, Comma otherwise.
func DetectDelimiter(header string) rune {
	if strings.Contains(header, "\t") && !strings.Contains(header, ",") {
		return Tab
	}
	return Comma
}

// openTable opens path and returns a csv.Reader using the delimiter implied
// by the extension, or by the header line for unknown extensions.
func openTable(path string) (*csv.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	br := bufio.NewReader(f)

	comma := DelimiterForPath(path)
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" && comma == Comma {
		line, err := br.Peek(4096)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			f.Close()
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		header, _, _ := strings.Cut(string(line), "\n")
		comma = DetectDelimiter(header)
	}

	r := csv.NewReader(br)
	r.Comma = comma
	r.TrimLeadingSpace = true
	return r, f, nil
}

// parseVolume parses a cell; an empty cell is 0.
func parseVolume(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", cell)
	}
	return v, nil
}

// FormatVolume renders a volume without trailing zeros.
func FormatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// create opens path for writing and returns a csv.Writer using the
// delimiter implied by its extension.
func create(path string) (*csv.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	w.Comma = DelimiterForPath(path)
	return w, f, nil
}

// writeFile creates path and runs write against it, flushing and closing afterwards.
func writeFile(path string, write func(w *csv.Writer) error) error {
	w, f, err := create(path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

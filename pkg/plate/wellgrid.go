package plate

import (
	"fmt"
	"strconv"
	"strings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MaxRows is the number of rows addressable with one- and two-letter row names.
const MaxRows = 26 + 26*26

// Orientation is the order in which wells are filled.
type Orientation string

const (
	// Vertical fills down each column before moving to the next (column-major).
	Vertical Orientation = "vertical"

	// Horizontal fills along each row before moving to the next (row-major).
	Horizontal Orientation = "horizontal"
)

// ParseOrientation parses "vertical" or "horizontal". The empty string is Vertical.
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(strings.ToLower(strings.TrimSpace(s))) {
	case "", Vertical:
		return Vertical, nil
	case Horizontal:
		return Horizontal, nil
	}
	return "", fmt.Errorf("invalid orientation: %q (must be 'vertical' or 'horizontal')", s)
}

// Dimensions is a plate's row and column count.
type Dimensions struct {
	Rows    int
	Columns int
}

// Wells returns the number of wells on a plate of these dimensions.
func (d Dimensions) Wells() int {
	return d.Rows * d.Columns
}

// Validate checks that both counts are positive and the rows are nameable.
func (d Dimensions) Validate() error {
	if d.Rows < 1 || d.Columns < 1 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, d.Rows, d.Columns)
	}
	if d.Rows > MaxRows {
		return fmt.Errorf("%w: %d rows exceeds the %d nameable rows", ErrInvalidDimensions, d.Rows, MaxRows)
	}
	return nil
}

// String renders the dimensions as "RxC".
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Rows, d.Columns)
}

// ParseDimensions parses an "RxC" string such as "16x24".
func ParseDimensions(s string) (Dimensions, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Dimensions{}, fmt.Errorf("%w: %q (expected RxC)", ErrInvalidDimensions, s)
	}
	rows, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Dimensions{}, fmt.Errorf("%w: %q has a non-numeric row count", ErrInvalidDimensions, s)
	}
	cols, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Dimensions{}, fmt.Errorf("%w: %q has a non-numeric column count", ErrInvalidDimensions, s)
	}
	d := Dimensions{Rows: rows, Columns: cols}
	if err := d.Validate(); err != nil {
		return Dimensions{}, err
	}
	return d, nil
}

// WellLabel is a well position: a one- or two-letter row and a 1-based column.
type WellLabel struct {
	Row    string
	Column int
}

// String renders the label as row letters followed by the column, e.g. "AB12".
func (l WellLabel) String() string {
	return l.Row + strconv.Itoa(l.Column)
}

// MarshalText implements encoding.TextMarshaler so labels can key JSON maps.
func (l WellLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *WellLabel) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLabel parses a label such as "A1", "p24" or "AF48".
func ParseLabel(s string) (WellLabel, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i > 2 || i == len(s) {
		return WellLabel{}, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	col, err := strconv.Atoi(s[i:])
	if err != nil || col < 1 {
		return WellLabel{}, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	return WellLabel{Row: s[:i], Column: col}, nil
}

// MustParseLabel is ParseLabel for constant labels; it panics on error.
func MustParseLabel(s string) WellLabel {
	l, err := ParseLabel(s)
	if err != nil {
		panic(err)
	}
	return l
}

// RowName returns the name of the zero-based row r. The first 26 rows are
// single letters; later rows are two letters, AA for row 26.
func RowName(r int) string {
	if r < 26 {
		return alphabet[r : r+1]
	}
	r -= 26
	return string([]byte{alphabet[r/26], alphabet[r%26]})
}

// RowIndex is the inverse of RowName.
func RowIndex(name string) (int, error) {
	name = strings.ToUpper(name)
	switch len(name) {
	case 1:
		if c := name[0]; c >= 'A' && c <= 'Z' {
			return int(c - 'A'), nil
		}
	case 2:
		a, b := name[0], name[1]
		if a >= 'A' && a <= 'Z' && b >= 'A' && b <= 'Z' {
			return 26 + int(a-'A')*26 + int(b-'A'), nil
		}
	}
	return 0, fmt.Errorf("%w: row %q", ErrInvalidLabel, name)
}

// LabelOf maps a linear well index to its label.
func LabelOf(index int, dims Dimensions, orientation Orientation) (WellLabel, error) {
	if index < 0 || index >= dims.Wells() {
		return WellLabel{}, fmt.Errorf("%w: index %d on %s plate", ErrOutOfRange, index, dims)
	}
	var row, col int
	if orientation == Horizontal {
		row, col = index/dims.Columns, index%dims.Columns
	} else {
		row, col = index%dims.Rows, index/dims.Rows
	}
	return WellLabel{Row: RowName(row), Column: col + 1}, nil
}

// IndexOf maps a label to its linear well index. It fails with ErrOutOfRange
// when the row or column lies outside the plate.
func IndexOf(label WellLabel, dims Dimensions, orientation Orientation) (int, error) {
	row, err := RowIndex(label.Row)
	if err != nil {
		return 0, err
	}
	if row >= dims.Rows || label.Column < 1 || label.Column > dims.Columns {
		return 0, fmt.Errorf("%w: %s on %s plate", ErrOutOfRange, label, dims)
	}
	col := label.Column - 1
	if orientation == Horizontal {
		return col + row*dims.Columns, nil
	}
	return row + col*dims.Rows, nil
}

// lineLength is the number of wells in one fill line (a column when filling
// vertically, a row when filling horizontally).
func lineLength(dims Dimensions, orientation Orientation) int {
	if orientation == Horizontal {
		return dims.Columns
	}
	return dims.Rows
}

package transfer

import (
	"fmt"
	"strings"

	"github.com/dyluth/echoplan/pkg/plate"
)

// SourceLocation is where a transfer draws from: a single well, or an
// aggregate of wells any of which may be used. The aggregate is rendered as
// "{A1;B1;C1}" only when written out.
type SourceLocation struct {
	wells []plate.WellLabel
}

// SingleWell returns a location naming one well.
func SingleWell(label plate.WellLabel) SourceLocation {
	return SourceLocation{wells: []plate.WellLabel{label}}
}

// MultiWell returns an aggregate location. A single label yields a single-well location.
func MultiWell(labels []plate.WellLabel) SourceLocation {
	wells := make([]plate.WellLabel, len(labels))
	copy(wells, labels)
	return SourceLocation{wells: wells}
}

// IsAggregate reports whether the location spans more than one well.
func (s SourceLocation) IsAggregate() bool {
	return len(s.wells) > 1
}

// Wells returns the labels in the location.
func (s SourceLocation) Wells() []plate.WellLabel {
	out := make([]plate.WellLabel, len(s.wells))
	copy(out, s.wells)
	return out
}

// String renders "A1" for a single well and "{A1;A2}" for an aggregate.
func (s SourceLocation) String() string {
	if len(s.wells) == 1 {
		return s.wells[0].String()
	}
	parts := make([]string, len(s.wells))
	for i, w := range s.wells {
		parts[i] = w.String()
	}
	return "{" + strings.Join(parts, ";") + "}"
}

// Equal reports whether two locations name the same wells in the same order.
func (s SourceLocation) Equal(o SourceLocation) bool {
	if len(s.wells) != len(o.wells) {
		return false
	}
	for i := range s.wells {
		if s.wells[i] != o.wells[i] {
			return false
		}
	}
	return true
}

// MarshalText implements encoding.TextMarshaler.
func (s SourceLocation) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SourceLocation) UnmarshalText(text []byte) error {
	parsed, err := ParseSourceLocation(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSourceLocation parses "A1" or "{A1;B1}".
func ParseSourceLocation(text string) (SourceLocation, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") {
		if !strings.HasSuffix(text, "}") {
			return SourceLocation{}, fmt.Errorf("unterminated source well aggregate: %q", text)
		}
		var labels []plate.WellLabel
		for _, part := range strings.Split(text[1:len(text)-1], ";") {
			l, err := plate.ParseLabel(part)
			if err != nil {
				return SourceLocation{}, err
			}
			labels = append(labels, l)
		}
		return MultiWell(labels), nil
	}
	l, err := plate.ParseLabel(text)
	if err != nil {
		return SourceLocation{}, err
	}
	return SingleWell(l), nil
}

package plate

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Record is the persisted form of a plate. Wells maps a well label to the
// volume of each component in it. The cursor is not part of the record.
type Record struct {
	Dimensions   string                        `json:"dimensions" yaml:"dimensions"`
	DeadVolume   float64                       `json:"deadVolume" yaml:"deadVolume"`
	WellCapacity float64                       `json:"wellCapacity" yaml:"wellCapacity"`
	Orientation  Orientation                   `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	Wells        map[string]map[string]float64 `json:"wells" yaml:"wells"`
}

// ToRecord captures the plate's committed layout.
func (p *Plate) ToRecord() Record {
	r := Record{
		Dimensions:   p.spec.Dimensions.String(),
		DeadVolume:   p.spec.DeadVolume,
		WellCapacity: p.spec.WellCapacity,
		Orientation:  p.spec.Orientation,
		Wells:        make(map[string]map[string]float64, len(p.wells)),
	}
	for _, w := range p.wells {
		contents := make(map[string]float64, len(w.Contents))
		for _, c := range w.Contents {
			contents[c.Component] = c.Volume
		}
		r.Wells[w.Label.String()] = contents
	}
	return r
}

// FromRecord rebuilds a plate from its record. Wells are refilled in address
// order and components within a well in name order, so two plates rebuilt
// from the same record are identical. Zero-volume entries are dropped.
func FromRecord(r Record) (*Plate, error) {
	dims, err := ParseDimensions(r.Dimensions)
	if err != nil {
		return nil, err
	}
	orientation, err := ParseOrientation(string(r.Orientation))
	if err != nil {
		return nil, err
	}
	p, err := New(Spec{
		Dimensions:   dims,
		DeadVolume:   r.DeadVolume,
		WellCapacity: r.WellCapacity,
		Orientation:  orientation,
	})
	if err != nil {
		return nil, err
	}

	type entry struct {
		key   string
		label WellLabel
		index int
	}
	entries := make([]entry, 0, len(r.Wells))
	for key := range r.Wells {
		label, err := ParseLabel(key)
		if err != nil {
			return nil, err
		}
		idx, err := IndexOf(label, dims, orientation)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: key, label: label, index: idx})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	for _, e := range entries {
		contents := r.Wells[e.key]
		names := make([]string, 0, len(contents))
		for name := range contents {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := p.FillWellAt(e.label, name, contents[name]); err != nil {
				return nil, fmt.Errorf("well %s: %w", e.label, err)
			}
		}
	}
	return p, nil
}

// MarshalJSON encodes the plate as its Record.
func (p *Plate) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToRecord())
}

// UnmarshalJSON decodes a Record into the plate.
func (p *Plate) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	decoded, err := FromRecord(r)
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}

// Records converts a list of plates to records.
func Records(plates []*Plate) []Record {
	out := make([]Record, len(plates))
	for i, p := range plates {
		out[i] = p.ToRecord()
	}
	return out
}

// FromRecords rebuilds a list of plates, failing on the first bad record.
func FromRecords(records []Record) ([]*Plate, error) {
	out := make([]*Plate, len(records))
	for i, r := range records {
		p, err := FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("plate %d: %w", i+1, err)
		}
		out[i] = p
	}
	return out, nil
}

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dyluth/echoplan/internal/allocate"
	"github.com/dyluth/echoplan/internal/layout"
	"github.com/dyluth/echoplan/internal/pipeline"
	"github.com/dyluth/echoplan/internal/store"
	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/dyluth/echoplan/pkg/plate"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "echoplan.yml"

// Negative-diluent policies.
const (
	PolicyAbort = "abort"
	PolicyDrop  = "drop"
)

// EchoplanConfig represents the top-level echoplan.yml configuration
type EchoplanConfig struct {
	Version           string             `yaml:"version"`
	Diluent           string             `yaml:"diluent,omitempty"`             // Default: water
	OnNegativeDiluent string             `yaml:"on_negative_diluent,omitempty"` // abort (default) or drop
	Destination       *DestinationConfig `yaml:"destination"`
	Source            *SourceConfig      `yaml:"source"`
	Transfer          *TransferConfig    `yaml:"transfer"`
	Store             *StoreConfig       `yaml:"store,omitempty"`
}

// PlateConfig describes a physical plate type
type PlateConfig struct {
	Dimensions   string   `yaml:"dimensions"` // "RxC", e.g. "16x24"
	WellCapacity float64  `yaml:"well_capacity"`
	DeadVolume   *float64 `yaml:"dead_volume,omitempty"`
	Orientation  string   `yaml:"orientation,omitempty"` // vertical (default) or horizontal
}

// DestinationConfig controls destination plate layout
type DestinationConfig struct {
	Plate        PlateConfig `yaml:"plate"`
	TargetVolume float64     `yaml:"target_volume"`
	Replicates   *int        `yaml:"replicates,omitempty"` // Default: 1
	StartWell    string      `yaml:"start_well,omitempty"` // Default: A1
	NamePrefix   string      `yaml:"name_prefix,omitempty"`
}

// SourceConfig controls source plate allocation
type SourceConfig struct {
	Plate      PlateConfig                `yaml:"plate"`
	StartWell  string                     `yaml:"start_well,omitempty"`
	NamePrefix string                     `yaml:"name_prefix,omitempty"`
	Order      []string                   `yaml:"order,omitempty"`
	Components map[string]ComponentConfig `yaml:"components,omitempty"`
}

// ComponentConfig overrides source allocation for one component
type ComponentConfig struct {
	DeadVolume   *float64 `yaml:"dead_volume,omitempty"`
	WellCapacity *float64 `yaml:"well_capacity,omitempty"`
	ExtraWells   int      `yaml:"extra_wells,omitempty"`
	NewColumn    bool     `yaml:"new_column,omitempty"`
}

// TransferConfig controls instruction compilation
type TransferConfig struct {
	DefaultPlateType string            `yaml:"default_plate_type"`
	PlateTypes       map[string]string `yaml:"plate_types,omitempty"`
	MaxVolume        float64           `yaml:"max_volume,omitempty"` // 0 disables splitting
	MinVolume        float64           `yaml:"min_volume,omitempty"`
	DispenseOrder    []string          `yaml:"dispense_order,omitempty"`
	Groups           []transfer.Group  `yaml:"groups,omitempty"`
}

// StoreConfig selects where runs are persisted
type StoreConfig struct {
	Backend    string `yaml:"backend,omitempty"` // none (default), redis or sqlite
	RedisAddr  string `yaml:"redis_addr,omitempty"`
	SQLitePath string `yaml:"sqlite_path,omitempty"`
	Project    string `yaml:"project,omitempty"`
}

// Validate performs strict validation on the configuration and applies defaults
func (c *EchoplanConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Diluent == "" {
		c.Diluent = layout.DefaultDiluent
	}
	switch c.OnNegativeDiluent {
	case "":
		c.OnNegativeDiluent = PolicyAbort
	case PolicyAbort, PolicyDrop:
	default:
		return fmt.Errorf("invalid on_negative_diluent: %s (must be 'abort' or 'drop')", c.OnNegativeDiluent)
	}

	if c.Destination == nil {
		return fmt.Errorf("destination section is required")
	}
	if err := c.Destination.Validate(); err != nil {
		return err
	}

	if c.Source == nil {
		return fmt.Errorf("source section is required")
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if c.Transfer == nil {
		return fmt.Errorf("transfer section is required")
	}
	if err := c.Transfer.Validate(); err != nil {
		return err
	}

	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	return c.Store.Validate()
}

// Validate checks a plate section; field is the path used in error messages
func (p *PlateConfig) Validate(field string) error {
	_, err := p.Spec(field)
	return err
}

// Spec converts the plate section into a plate.Spec
func (p *PlateConfig) Spec(field string) (plate.Spec, error) {
	if p.Dimensions == "" {
		return plate.Spec{}, fmt.Errorf("%s.dimensions is required", field)
	}
	dims, err := plate.ParseDimensions(p.Dimensions)
	if err != nil {
		return plate.Spec{}, fmt.Errorf("%s.dimensions: %w", field, err)
	}
	orientation, err := plate.ParseOrientation(p.Orientation)
	if err != nil {
		return plate.Spec{}, fmt.Errorf("%s.orientation: %w", field, err)
	}
	var dead float64
	if p.DeadVolume != nil {
		dead = *p.DeadVolume
	}
	spec := plate.Spec{Dimensions: dims, DeadVolume: dead, WellCapacity: p.WellCapacity, Orientation: orientation}
	if err := plate.ValidateCapacity(spec.WellCapacity, spec.DeadVolume); err != nil {
		return plate.Spec{}, fmt.Errorf("%s: %w", field, err)
	}
	return spec, nil
}

// Validate checks the destination section and applies defaults
func (d *DestinationConfig) Validate() error {
	spec, err := d.Plate.Spec("destination.plate")
	if err != nil {
		return err
	}
	if d.TargetVolume <= 0 {
		return fmt.Errorf("destination.target_volume must be > 0, got %g", d.TargetVolume)
	}
	if d.TargetVolume > spec.WellCapacity {
		return fmt.Errorf("destination.target_volume %g exceeds destination.plate.well_capacity %g", d.TargetVolume, spec.WellCapacity)
	}
	if d.Replicates == nil {
		defaultReplicates := 1
		d.Replicates = &defaultReplicates
	}
	if *d.Replicates < 1 {
		return fmt.Errorf("destination.replicates must be >= 1, got %d", *d.Replicates)
	}
	if d.NamePrefix == "" {
		d.NamePrefix = pipeline.DefaultDestinationPrefix
	}
	return validateStartWell("destination.start_well", d.StartWell, spec)
}

// Validate checks the source section, including every component override
func (s *SourceConfig) Validate() error {
	spec, err := s.Plate.Spec("source.plate")
	if err != nil {
		return err
	}
	if s.NamePrefix == "" {
		s.NamePrefix = pipeline.DefaultSourcePrefix
	}
	for _, name := range s.componentNames() {
		o := s.Components[name]
		dead, capacity := spec.DeadVolume, spec.WellCapacity
		if o.DeadVolume != nil {
			dead = *o.DeadVolume
		}
		if o.WellCapacity != nil {
			capacity = *o.WellCapacity
		}
		if err := plate.ValidateCapacity(capacity, dead); err != nil {
			return fmt.Errorf("source.components.%s: %w", name, err)
		}
		if o.ExtraWells < 0 {
			return fmt.Errorf("source.components.%s.extra_wells must be >= 0, got %d", name, o.ExtraWells)
		}
	}
	return validateStartWell("source.start_well", s.StartWell, spec)
}

func (s *SourceConfig) componentNames() []string {
	names := make([]string, 0, len(s.Components))
	for name := range s.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the transfer section
func (t *TransferConfig) Validate() error {
	if t.DefaultPlateType == "" {
		return fmt.Errorf("transfer.default_plate_type is required")
	}
	if err := t.Options().Validate(); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	seen := make(map[string]bool)
	for i, g := range t.Groups {
		if g.Name == "" {
			return fmt.Errorf("transfer.groups[%d]: name is required", i)
		}
		if g.Name == transfer.RemainderGroup {
			return fmt.Errorf("transfer.groups[%d]: name '%s' is reserved", i, transfer.RemainderGroup)
		}
		if strings.ContainsAny(g.Name, `/\ `) {
			return fmt.Errorf("transfer.groups[%d]: name '%s' must not contain spaces or path separators", i, g.Name)
		}
		if seen[g.Name] {
			return fmt.Errorf("transfer.groups[%d]: duplicate group name '%s'", i, g.Name)
		}
		seen[g.Name] = true
	}
	return nil
}

// Options converts the transfer section into compiler options
func (t *TransferConfig) Options() transfer.Options {
	return transfer.Options{
		PlateTypes: transfer.PlateTypes{Default: t.DefaultPlateType, ByComponent: t.PlateTypes},
		MaxVolume:  t.MaxVolume,
		MinVolume:  t.MinVolume,
	}
}

// Validate checks the store section and applies backend defaults
func (s *StoreConfig) Validate() error {
	if s.Project == "" {
		s.Project = store.DefaultProject
	}
	switch s.Backend {
	case "", store.BackendNone:
		s.Backend = store.BackendNone
	case store.BackendRedis:
		if s.RedisAddr == "" {
			s.RedisAddr = store.DefaultRedisAddr
		}
	case store.BackendSQLite:
		if s.SQLitePath == "" {
			s.SQLitePath = store.DefaultSQLitePath
		}
	default:
		return fmt.Errorf("invalid store.backend: %s (must be 'none', 'redis' or 'sqlite')", s.Backend)
	}
	return nil
}

// Options converts the store section into store options
func (s *StoreConfig) Options() store.Options {
	return store.Options{
		Backend:    s.Backend,
		RedisAddr:  s.RedisAddr,
		SQLitePath: s.SQLitePath,
		Project:    s.Project,
	}
}

func validateStartWell(field, label string, spec plate.Spec) error {
	if label == "" {
		return nil
	}
	l, err := plate.ParseLabel(label)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if _, err := plate.IndexOf(l, spec.Dimensions, spec.Orientation); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

// PipelineOptions converts a validated configuration into pipeline options
func (c *EchoplanConfig) PipelineOptions() (pipeline.Options, error) {
	dstSpec, err := c.Destination.Plate.Spec("destination.plate")
	if err != nil {
		return pipeline.Options{}, err
	}
	srcSpec, err := c.Source.Plate.Spec("source.plate")
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{
		Destination: layout.Options{
			Plate:        dstSpec,
			TargetVolume: c.Destination.TargetVolume,
			Replicates:   1,
			Diluent:      c.Diluent,
		},
		Source: allocate.Config{
			Plate:      srcSpec,
			Components: make(map[string]allocate.ComponentOptions, len(c.Source.Components)),
		},
		SourceOrder:         c.Source.Order,
		Transfer:            c.Transfer.Options(),
		DispenseOrder:       c.Transfer.DispenseOrder,
		Groups:              c.Transfer.Groups,
		DestinationPrefix:   c.Destination.NamePrefix,
		SourcePrefix:        c.Source.NamePrefix,
		DropNegativeDiluent: c.OnNegativeDiluent == PolicyDrop,
	}
	if c.Destination.Replicates != nil {
		opts.Destination.Replicates = *c.Destination.Replicates
	}
	if c.Destination.StartWell != "" {
		if opts.Destination.StartWell, err = plate.ParseLabel(c.Destination.StartWell); err != nil {
			return pipeline.Options{}, fmt.Errorf("destination.start_well: %w", err)
		}
	}
	if c.Source.StartWell != "" {
		if opts.Source.StartWell, err = plate.ParseLabel(c.Source.StartWell); err != nil {
			return pipeline.Options{}, fmt.Errorf("source.start_well: %w", err)
		}
	}
	for name, o := range c.Source.Components {
		opts.Source.Components[name] = allocate.ComponentOptions{
			DeadVolume:   o.DeadVolume,
			WellCapacity: o.WellCapacity,
			ExtraWells:   o.ExtraWells,
			NewColumn:    o.NewColumn,
		}
		if o.DeadVolume != nil {
			if opts.Transfer.DeadVolumes == nil {
				opts.Transfer.DeadVolumes = make(map[string]float64)
			}
			opts.Transfer.DeadVolumes[name] = *o.DeadVolume
		}
	}
	return opts, nil
}

// Load reads and validates echoplan.yml from the specified path
func Load(path string) (*EchoplanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config EchoplanConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

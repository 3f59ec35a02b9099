package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"satfarm/internal/app/session"
	"satfarm/internal/domain/farm"
	"satfarm/internal/domain/irrigation"
)

//go:embed default.yaml
var defaultYAML []byte

//go:embed catalog.schema.json
var schemaJSON []byte

const schemaURL = "https://satfarm.local/schemas/catalog.schema.json"

type File struct {
	Version string                `yaml:"version"`
	Tuning  Tuning                `yaml:"tuning"`
	Crops   []farm.CropDefinition `yaml:"crops"`
}

type Tuning struct {
	ParcelCount       int            `yaml:"parcel_count"`
	StartingBalance   int            `yaml:"starting_balance"`
	AutoIrrigation    bool           `yaml:"auto_irrigation"`
	TickIntervalMs    int            `yaml:"tick_interval_ms"`
	JitterIntervalMs  int            `yaml:"jitter_interval_ms"`
	RefreshIntervalMs int            `yaml:"refresh_interval_ms"`
	ActionCosts       map[string]int `yaml:"action_costs"`
	Irrigation        IrrigationTune `yaml:"irrigation"`
}

type IrrigationTune struct {
	WaterThreshold float64 `yaml:"water_threshold"`
	QuietPeriodMs  int     `yaml:"quiet_period_ms"`
	MinBalance     int     `yaml:"min_balance"`
	Fee            int     `yaml:"fee"`
	DelayMs        int     `yaml:"delay_ms"`
	CooldownMs     int     `yaml:"cooldown_ms"`
	WaterBonus     float64 `yaml:"water_bonus"`
	PollIntervalMs int     `yaml:"poll_interval_ms"`
}

// Catalog is the read-only crop list plus game tuning.
type Catalog struct {
	version string
	crops   []farm.CropDefinition
	byID    map[farm.CropID]farm.CropDefinition
	tuning  Tuning
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(nil)
}

// Load reads an override file. An empty path means the embedded catalog.
// Tuning keys missing from the override keep their embedded values; the
// crop list is replaced wholesale.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse validates raw against the catalog schema and layers it over the
// embedded defaults. nil raw yields the defaults alone.
func Parse(raw []byte) (*Catalog, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	if err := validate(schema, defaultYAML); err != nil {
		return nil, fmt.Errorf("default catalog: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(defaultYAML, &f); err != nil {
		return nil, fmt.Errorf("default catalog: %w", err)
	}
	if len(raw) > 0 {
		if err := validate(schema, raw); err != nil {
			return nil, err
		}
		f.Crops = nil
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("catalog yaml: %w", err)
		}
	}
	return build(f)
}

func build(f File) (*Catalog, error) {
	c := &Catalog{
		version: f.Version,
		crops:   make([]farm.CropDefinition, 0, len(f.Crops)),
		byID:    make(map[farm.CropID]farm.CropDefinition, len(f.Crops)),
		tuning:  f.Tuning,
	}
	for _, crop := range f.Crops {
		if _, dup := c.byID[crop.ID]; dup {
			return nil, fmt.Errorf("duplicate crop id %q", crop.ID)
		}
		c.byID[crop.ID] = crop
		c.crops = append(c.crops, crop)
	}
	sort.Slice(c.crops, func(i, j int) bool { return c.crops[i].ID < c.crops[j].ID })
	return c, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("catalog schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("catalog schema: %w", err)
	}
	return schema, nil
}

// validate converts YAML into the JSON value model before checking it.
func validate(schema *jsonschema.Schema, raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("catalog yaml: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("catalog yaml: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("catalog invalid: %w", err)
	}
	return nil
}

func (c *Catalog) Version() string { return c.version }

func (c *Catalog) Crop(id farm.CropID) (farm.CropDefinition, bool) {
	crop, ok := c.byID[id]
	return crop, ok
}

func (c *Catalog) Crops() []farm.CropDefinition {
	out := make([]farm.CropDefinition, len(c.crops))
	copy(out, c.crops)
	return out
}

func (c *Catalog) Tuning() Tuning { return c.tuning }

func (c *Catalog) Costs() map[farm.ActionType]int {
	out := farm.DefaultActionCosts()
	for k, v := range c.tuning.ActionCosts {
		out[farm.ActionType(k)] = v
	}
	return out
}

func (c *Catalog) IrrigationConfig() irrigation.Config {
	t := c.tuning.Irrigation
	cfg := irrigation.DefaultConfig()
	if t.WaterThreshold > 0 {
		cfg.WaterThreshold = t.WaterThreshold
	}
	if t.QuietPeriodMs > 0 {
		cfg.QuietPeriod = ms(t.QuietPeriodMs)
	}
	if t.MinBalance > 0 {
		cfg.MinBalance = t.MinBalance
	}
	if t.Fee > 0 {
		cfg.Fee = t.Fee
	}
	if t.DelayMs > 0 {
		cfg.Delay = ms(t.DelayMs)
	}
	if t.CooldownMs > 0 {
		cfg.Cooldown = ms(t.CooldownMs)
	}
	if t.WaterBonus > 0 {
		cfg.WaterBonus = t.WaterBonus
	}
	if t.PollIntervalMs > 0 {
		cfg.PollInterval = ms(t.PollIntervalMs)
	}
	return cfg
}

// SessionConfig layers the catalog tuning over session defaults.
func (c *Catalog) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	t := c.tuning
	if t.ParcelCount > 0 {
		cfg.ParcelCount = t.ParcelCount
	}
	if t.StartingBalance > 0 {
		cfg.StartingBalance = t.StartingBalance
	}
	cfg.AutoIrrigation = t.AutoIrrigation
	if t.TickIntervalMs > 0 {
		cfg.TickInterval = ms(t.TickIntervalMs)
	}
	cfg.JitterInterval = ms(t.JitterIntervalMs)
	cfg.RefreshInterval = ms(t.RefreshIntervalMs)
	cfg.Costs = c.Costs()
	cfg.Irrigation = c.IrrigationConfig()
	return cfg
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Package config provides configuration loading and access for the simulator.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulator configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Grid       GridConfig       `yaml:"grid"`
	Simulation SimulationConfig `yaml:"simulation"`
	Render     RenderConfig     `yaml:"render"`
	Compute    ComputeConfig    `yaml:"compute"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Monitor    MonitorConfig    `yaml:"monitor"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// GridConfig holds energy field dimensions and seeding.
type GridConfig struct {
	Size      int     `yaml:"size"`       // Cube side length; must be one of the supported sizes
	SeedLevel float64 `yaml:"seed_level"` // Upper bound of the uniform seed energy
}

// SimulationConfig holds loop-level stepping parameters.
type SimulationConfig struct {
	Speed             int     `yaml:"speed"`              // Sub-steps per frame (0 = paused)
	ReductionInterval int     `yaml:"reduction_interval"` // Sub-steps between mean reductions
	MaxDT             float64 `yaml:"max_dt"`             // Frame delta clamp in seconds
}

// RenderConfig holds volume renderer parameters.
type RenderConfig struct {
	Scale      float64 `yaml:"scale"`       // Internal resolution as a fraction of the window
	FOVDegrees float64 `yaml:"fov_degrees"` // Vertical field of view
}

// ComputeConfig selects the kernel backend.
type ComputeConfig struct {
	Backend string `yaml:"backend"` // auto | cpu | opencl
	Workers int    `yaml:"workers"` // CPU worker count (0 = GOMAXPROCS)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// MonitorConfig holds the websocket stats feed settings.
type MonitorConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":9300"; empty disables the feed
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ScreenW32 float32 // Screen.Width as float32
	ScreenH32 float32 // Screen.Height as float32
	RenderW   int     // Internal render target width
	RenderH   int     // Internal render target height
	MaxDT32   float32 // Simulation.MaxDT as float32
}

// GridSizes are the supported cube side lengths.
var GridSizes = []int{32, 64, 96, 128, 256}

// ValidGridSize reports whether n is a supported cube side length.
func ValidGridSize(n int) bool {
	for _, s := range GridSizes {
		if s == n {
			return true
		}
	}
	return false
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects configurations the simulation cannot safely run with.
// Nothing out of domain is allowed to reach the kernel.
func (c *Config) validate() error {
	if !ValidGridSize(c.Grid.Size) {
		return fmt.Errorf("config: unsupported grid size %d (supported: %v)", c.Grid.Size, GridSizes)
	}
	if c.Grid.SeedLevel < 0 || c.Grid.SeedLevel > 1 {
		return fmt.Errorf("config: grid seed_level %v out of [0,1]", c.Grid.SeedLevel)
	}
	if c.Simulation.Speed < 0 || c.Simulation.Speed > 8 {
		return fmt.Errorf("config: simulation speed %d out of [0,8]", c.Simulation.Speed)
	}
	if c.Simulation.ReductionInterval < 1 {
		return fmt.Errorf("config: reduction_interval %d must be >= 1", c.Simulation.ReductionInterval)
	}
	if c.Simulation.MaxDT <= 0 {
		return fmt.Errorf("config: max_dt %v must be positive", c.Simulation.MaxDT)
	}
	if c.Render.Scale <= 0 || c.Render.Scale > 1 {
		return fmt.Errorf("config: render scale %v out of (0,1]", c.Render.Scale)
	}
	if c.Render.FOVDegrees < 20 || c.Render.FOVDegrees > 120 {
		return fmt.Errorf("config: fov_degrees %v out of [20,120]", c.Render.FOVDegrees)
	}
	switch c.Compute.Backend {
	case "auto", "cpu", "opencl":
	default:
		return fmt.Errorf("config: unknown compute backend %q", c.Compute.Backend)
	}
	if c.Telemetry.StatsWindow <= 0 {
		return fmt.Errorf("config: stats_window %v must be positive", c.Telemetry.StatsWindow)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
	c.Derived.MaxDT32 = float32(c.Simulation.MaxDT)

	w := int(float64(c.Screen.Width) * c.Render.Scale)
	h := int(float64(c.Screen.Height) * c.Render.Scale)
	if w < 64 {
		w = 64
	}
	if h < 64 {
		h = 64
	}
	c.Derived.RenderW = w
	c.Derived.RenderH = h
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Package params holds the tunable simulation parameters, their
// validation, and the packed block layout shared with the compute
// backends.
package params

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Record is the full set of tunable parameters. Fields are kept in
// float32 because every consumer (CPU stepper, OpenCL kernel, packer)
// works in single precision. All writes should go through SetByName so
// range clamping and discrete snapping apply uniformly.
type Record struct {
	InnerRadius   float32 `yaml:"inner_radius"`
	OuterRadius   float32 `yaml:"outer_radius"`
	InnerStrength float32 `yaml:"inner_strength"`
	OuterStrength float32 `yaml:"outer_strength"`

	GrowthCenter    float32 `yaml:"growth_center"`
	GrowthWidth     float32 `yaml:"growth_width"`
	GrowthWidthNorm float32 `yaml:"growth_width_norm"`
	GrowthRate      float32 `yaml:"growth_rate"`
	DecayRate       float32 `yaml:"decay_rate"`
	DiffusionRate   float32 `yaml:"diffusion_rate"`

	FissionThreshold  float32 `yaml:"fission_threshold"`
	InstabilityFactor float32 `yaml:"instability_factor"`
	SuppressionFactor float32 `yaml:"suppression_factor"`
	NoiseAmplitude    float32 `yaml:"noise_amplitude"`

	NeighborMode int `yaml:"neighbor_mode"`

	RaySteps    int     `yaml:"ray_steps"`
	PaletteMode int     `yaml:"palette_mode"`
	BandMask    int     `yaml:"band_mask"`
	Contrast    float32 `yaml:"contrast"`

	// GlobalAverage is fed back from the reduction pipeline; it is not
	// settable through SetByName.
	GlobalAverage float32 `yaml:"-"`
}

// Defaults returns the stock parameter set: a kernel and growth curve
// that produce self-organizing blobs on the default grid.
func Defaults() Record {
	return Record{
		InnerRadius:   2.0,
		OuterRadius:   6.0,
		InnerStrength: 1.0,
		OuterStrength: -0.55,

		GrowthCenter:    0.28,
		GrowthWidth:     0.045,
		GrowthWidthNorm: 1.0,
		GrowthRate:      0.12,
		DecayRate:       0.08,
		DiffusionRate:   0.35,

		FissionThreshold:  0.72,
		InstabilityFactor: 0.85,
		SuppressionFactor: 0.6,
		NoiseAmplitude:    0.0005,

		NeighborMode: 18,

		RaySteps:    96,
		PaletteMode: 0,
		BandMask:    15,
		Contrast:    2.4,
	}
}

// Spec describes one settable parameter for panels and tuning tools.
// Continuous parameters use Min/Max; discrete ones list Options and snap
// to the nearest choice.
type Spec struct {
	Name    string
	Label   string
	Min     float64
	Max     float64
	Options []int
}

// Specs lists every parameter accepted by SetByName, in panel order.
var Specs = []Spec{
	{Name: "innerRadius", Label: "Inner Radius", Min: 1, Max: 8},
	{Name: "outerRadius", Label: "Outer Radius", Min: 2, Max: 12},
	{Name: "innerStrength", Label: "Inner Strength", Min: 0, Max: 4},
	{Name: "outerStrength", Label: "Outer Strength", Min: -4, Max: 0},
	{Name: "growthCenter", Label: "Growth Center", Min: 0, Max: 1},
	{Name: "growthWidth", Label: "Growth Width", Min: 0.005, Max: 0.5},
	{Name: "growthWidthNorm", Label: "Width Norm", Min: 0, Max: 1},
	{Name: "growthRate", Label: "Growth Rate", Min: 0, Max: 1},
	{Name: "decayRate", Label: "Decay Rate", Min: 0, Max: 1},
	{Name: "diffusionRate", Label: "Diffusion", Min: 0, Max: 1},
	{Name: "fissionThreshold", Label: "Fission Threshold", Min: 0.01, Max: 0.99},
	{Name: "instabilityFactor", Label: "Instability", Min: 0, Max: 2},
	{Name: "suppressionFactor", Label: "Suppression", Min: 0, Max: 2},
	{Name: "noiseAmplitude", Label: "Noise", Min: 0, Max: 0.01},
	{Name: "contrast", Label: "Contrast", Min: 1, Max: 6},
	{Name: "bandMask", Label: "Band Mask", Min: 0, Max: 15},
	{Name: "neighborMode", Label: "Neighbors", Options: []int{6, 18, 26}},
	{Name: "raySteps", Label: "Ray Steps", Options: []int{64, 96, 128}},
	{Name: "paletteMode", Label: "Palette", Options: []int{0, 1, 2}},
}

// SpecFor returns the spec for a parameter name.
func SpecFor(name string) (Spec, bool) {
	for _, s := range Specs {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// SetByName validates and applies one parameter. Non-finite values and
// unknown names are rejected; in-range violations clamp rather than
// error so sliders and presets can saturate freely.
func (r *Record) SetByName(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("params: %s: value must be finite", name)
	}

	switch name {
	case "innerRadius":
		r.InnerRadius = clampf(value, 1, 8)
	case "outerRadius":
		r.OuterRadius = clampf(value, 2, 12)
	case "innerStrength":
		r.InnerStrength = clampf(value, 0, 4)
	case "outerStrength":
		r.OuterStrength = clampf(value, -4, 0)
	case "growthCenter":
		r.GrowthCenter = clampf(value, 0, 1)
	case "growthWidth":
		r.GrowthWidth = clampf(value, 0.005, 0.5)
	case "growthWidthNorm":
		r.GrowthWidthNorm = clampf(value, 0, 1)
	case "growthRate":
		r.GrowthRate = clampf(value, 0, 1)
	case "decayRate":
		r.DecayRate = clampf(value, 0, 1)
	case "diffusionRate":
		r.DiffusionRate = clampf(value, 0, 1)
	case "fissionThreshold":
		r.FissionThreshold = clampf(value, 0.01, 0.99)
	case "instabilityFactor":
		r.InstabilityFactor = clampf(value, 0, 2)
	case "suppressionFactor":
		r.SuppressionFactor = clampf(value, 0, 2)
	case "noiseAmplitude":
		r.NoiseAmplitude = clampf(value, 0, 0.01)
	case "contrast":
		r.Contrast = clampf(value, 1, 6)
	case "bandMask":
		r.BandMask = int(clampf(value, 0, 15))
	case "neighborMode":
		r.NeighborMode = nearestOption(value, []int{6, 18, 26})
	case "raySteps":
		r.RaySteps = nearestOption(value, []int{64, 96, 128})
	case "paletteMode":
		r.PaletteMode = nearestOption(value, []int{0, 1, 2})
	case "globalAverage":
		return fmt.Errorf("params: globalAverage is read-only")
	default:
		return fmt.Errorf("params: unknown parameter %q", name)
	}
	return nil
}

// GetByName reads one parameter as float64.
func (r *Record) GetByName(name string) (float64, error) {
	switch name {
	case "innerRadius":
		return float64(r.InnerRadius), nil
	case "outerRadius":
		return float64(r.OuterRadius), nil
	case "innerStrength":
		return float64(r.InnerStrength), nil
	case "outerStrength":
		return float64(r.OuterStrength), nil
	case "growthCenter":
		return float64(r.GrowthCenter), nil
	case "growthWidth":
		return float64(r.GrowthWidth), nil
	case "growthWidthNorm":
		return float64(r.GrowthWidthNorm), nil
	case "growthRate":
		return float64(r.GrowthRate), nil
	case "decayRate":
		return float64(r.DecayRate), nil
	case "diffusionRate":
		return float64(r.DiffusionRate), nil
	case "fissionThreshold":
		return float64(r.FissionThreshold), nil
	case "instabilityFactor":
		return float64(r.InstabilityFactor), nil
	case "suppressionFactor":
		return float64(r.SuppressionFactor), nil
	case "noiseAmplitude":
		return float64(r.NoiseAmplitude), nil
	case "contrast":
		return float64(r.Contrast), nil
	case "bandMask":
		return float64(r.BandMask), nil
	case "neighborMode":
		return float64(r.NeighborMode), nil
	case "raySteps":
		return float64(r.RaySteps), nil
	case "paletteMode":
		return float64(r.PaletteMode), nil
	case "globalAverage":
		return float64(r.GlobalAverage), nil
	default:
		return 0, fmt.Errorf("params: unknown parameter %q", name)
	}
}

// Sanitize forces every field back into its valid range, replacing
// non-finite values with defaults. Used after loading external presets.
func (r *Record) Sanitize() {
	d := Defaults()
	for _, s := range Specs {
		v, err := r.GetByName(s.Name)
		if err != nil {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v, _ = d.GetByName(s.Name)
		}
		r.SetByName(s.Name, v)
	}
	if isBad(r.GlobalAverage) {
		r.GlobalAverage = 0
	}
}

// Preset is the persisted parameter shape: the record plus the grid size
// it was captured at.
type Preset struct {
	Params   Record `yaml:"params"`
	GridSize int    `yaml:"grid_size"`
}

// Save writes the preset as YAML.
func (p Preset) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling preset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing preset: %w", err)
	}
	return nil
}

// LoadPreset reads a preset file and sanitizes its parameters. Fields
// missing from the file keep their default values.
func LoadPreset(path string) (Preset, error) {
	p := Preset{Params: Defaults()}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("reading preset: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing preset %s: %w", path, err)
	}
	p.Params.Sanitize()
	return p, nil
}

func clampf(v, min, max float64) float32 {
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return float32(v)
}

func nearestOption(v float64, options []int) int {
	best := options[0]
	bestDist := math.Abs(v - float64(best))
	for _, o := range options[1:] {
		if d := math.Abs(v - float64(o)); d < bestDist {
			best = o
			bestDist = d
		}
	}
	return best
}

func isBad(v float32) bool {
	f := float64(v)
	return math.IsNaN(f) || math.IsInf(f, 0)
}

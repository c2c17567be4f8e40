package telemetry

import (
	"log/slog"
	"math"
	"sort"
)

// WindowStats holds aggregated field statistics for one stats window.
// MeanEnergy comes from the asynchronous reduction; the remaining field
// columns come from one synchronous pass at window close.
type WindowStats struct {
	WindowStartFrame int64   `csv:"-" json:"-"`
	WindowEndFrame   int64   `csv:"window_end" json:"window_end"`
	SimTimeSec       float64 `csv:"sim_time" json:"sim_time"`

	FPS            float64 `csv:"fps" json:"fps"`
	SubStepsPerSec float64 `csv:"sub_steps_per_sec" json:"sub_steps_per_sec"`

	MeanEnergy float64 `csv:"mean_energy" json:"mean_energy"`
	MaxEnergy  float64 `csv:"max_energy" json:"max_energy"`
	EnergyP10  float64 `csv:"energy_p10" json:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50" json:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90" json:"energy_p90"`

	// ActiveFraction is the share of cells above the activity floor.
	ActiveFraction float64 `csv:"active_fraction" json:"active_fraction"`

	// Quartile band occupancy, matching the renderer's band mask.
	BandLow  float64 `csv:"band_low" json:"band_low"`
	BandMid  float64 `csv:"band_mid" json:"band_mid"`
	BandHigh float64 `csv:"band_high" json:"band_high"`
	BandPeak float64 `csv:"band_peak" json:"band_peak"`

	GridSize int    `csv:"grid_size" json:"grid_size"`
	Backend  string `csv:"backend" json:"backend"`
}

// activityFloor is the energy above which a cell counts as alive for
// ActiveFraction.
const activityFloor = 0.02

// FieldStats is the result of one synchronous pass over the grid.
type FieldStats struct {
	Max            float64
	P10, P50, P90  float64
	ActiveFraction float64
	Bands          [4]float64
}

// ComputeFieldStats scans a grid once and derives the distribution
// columns of WindowStats.
func ComputeFieldStats(grid []float32) FieldStats {
	var fs FieldStats
	n := len(grid)
	if n == 0 {
		return fs
	}

	values := make([]float64, n)
	var active int
	var bands [4]int
	for i, v := range grid {
		f := float64(v)
		values[i] = f
		if f > fs.Max {
			fs.Max = f
		}
		if f > activityFloor {
			active++
		}
		b := int(f * 4)
		if b > 3 {
			b = 3
		}
		bands[b]++
	}

	sort.Float64s(values)
	fs.P10 = Percentile(values, 0.10)
	fs.P50 = Percentile(values, 0.50)
	fs.P90 = Percentile(values, 0.90)

	fs.ActiveFraction = float64(active) / float64(n)
	for i := range bands {
		fs.Bands[i] = float64(bands[i]) / float64(n)
	}
	return fs
}

// Percentile calculates the p-th percentile of a sorted slice using
// linear interpolation. p should be in [0, 1]. Returns 0 for an empty
// slice.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// SeriesStats summarizes a sampled time series with its mean and
// population standard deviation.
func SeriesStats(values []float64) (mean, std float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	var sqDiffSum float64
	for _, v := range values {
		d := v - mean
		sqDiffSum += d * d
	}
	std = math.Sqrt(sqDiffSum / float64(n))

	return mean, std
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartFrame),
		slog.Int64("window_end", s.WindowEndFrame),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Float64("fps", s.FPS),
		slog.Float64("sub_steps_per_sec", s.SubStepsPerSec),
		slog.Float64("mean_energy", s.MeanEnergy),
		slog.Float64("max_energy", s.MaxEnergy),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Float64("active_fraction", s.ActiveFraction),
		slog.Float64("band_low", s.BandLow),
		slog.Float64("band_mid", s.BandMid),
		slog.Float64("band_high", s.BandHigh),
		slog.Float64("band_peak", s.BandPeak),
		slog.Int("grid_size", s.GridSize),
		slog.String("backend", s.Backend),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndFrame,
		"sim_time", s.SimTimeSec,
		"fps", s.FPS,
		"sub_steps_per_sec", s.SubStepsPerSec,
		"mean_energy", s.MeanEnergy,
		"max_energy", s.MaxEnergy,
		"energy_p10", s.EnergyP10,
		"energy_p50", s.EnergyP50,
		"energy_p90", s.EnergyP90,
		"active_fraction", s.ActiveFraction,
		"band_low", s.BandLow,
		"band_mid", s.BandMid,
		"band_high", s.BandHigh,
		"band_peak", s.BandPeak,
		"grid_size", s.GridSize,
		"backend", s.Backend,
	)
}

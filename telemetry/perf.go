package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one engine update.
const (
	PhaseSubStep = "sub_step"
	PhaseReduce  = "reduce"
	PhasePack    = "pack"
	PhaseRender  = "render"
)

// perfPhases is the canonical ordering for logs and CSV columns.
var perfPhases = []string{PhaseSubStep, PhaseReduce, PhasePack, PhaseRender}

// PerfSample holds timing data for a single update.
type PerfSample struct {
	UpdateDuration time.Duration
	Phases         map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
// Update timing covers the work inside Engine.Update; frame timing is
// the wall-clock gap between presented frames, which includes the
// display wait.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	updateStart   time.Time
	phaseStart    time.Time
	lastPhase     string

	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize
// updates (e.g. 240 for four seconds at 60 fps).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartUpdate begins timing a new engine update.
func (p *PerfCollector) StartUpdate() {
	p.updateStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a phase, closing the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndUpdate finishes the current update and records the sample.
func (p *PerfCollector) EndUpdate() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		UpdateDuration: now.Sub(p.updateStart),
		Phases:         p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// RecordFrame records the wall-clock gap between presented frames.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgUpdateDuration time.Duration
	MinUpdateDuration time.Duration
	MaxUpdateDuration time.Duration

	// Phase breakdown: average durations and share of update time.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	// Updates the engine could sustain if nothing else ran.
	UpdatesPerSecond float64

	// Presented frame timing.
	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg:      make(map[string]time.Duration),
			PhasePct:      make(map[string]float64),
			FrameDuration: p.frameDuration,
			FPS:           fps,
		}
	}

	var total time.Duration
	var min, max time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.UpdateDuration

		if i == 0 || s.UpdateDuration < min {
			min = s.UpdateDuration
		}
		if s.UpdateDuration > max {
			max = s.UpdateDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var updatesPerSec float64
	if avg > 0 {
		updatesPerSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgUpdateDuration: avg,
		MinUpdateDuration: min,
		MaxUpdateDuration: max,
		PhaseAvg:          phaseAvg,
		PhasePct:          phasePct,
		UpdatesPerSecond:  updatesPerSec,
		FrameDuration:     p.frameDuration,
		FPS:               fps,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_update_us", s.AvgUpdateDuration.Microseconds(),
		"min_update_us", s.MinUpdateDuration.Microseconds(),
		"max_update_us", s.MaxUpdateDuration.Microseconds(),
		"updates_per_sec", int(s.UpdatesPerSecond),
	}

	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}

	for _, phase := range perfPhases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_update_us", s.AvgUpdateDuration.Microseconds()),
		slog.Int64("min_update_us", s.MinUpdateDuration.Microseconds()),
		slog.Int64("max_update_us", s.MaxUpdateDuration.Microseconds()),
		slog.Float64("updates_per_sec", s.UpdatesPerSecond),
	}

	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}

	for phase, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(phase+"_pct", pct))
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd     int64   `csv:"window_end"`
	AvgUpdateUS   int64   `csv:"avg_update_us"`
	MinUpdateUS   int64   `csv:"min_update_us"`
	MaxUpdateUS   int64   `csv:"max_update_us"`
	UpdatesPerSec float64 `csv:"updates_per_sec"`
	FPS           float64 `csv:"fps"`
	SubStepPct    float64 `csv:"sub_step_pct"`
	ReducePct     float64 `csv:"reduce_pct"`
	PackPct       float64 `csv:"pack_pct"`
	RenderPct     float64 `csv:"render_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct. windowEnd is
// the frame index closing the window.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:     windowEnd,
		AvgUpdateUS:   s.AvgUpdateDuration.Microseconds(),
		MinUpdateUS:   s.MinUpdateDuration.Microseconds(),
		MaxUpdateUS:   s.MaxUpdateDuration.Microseconds(),
		UpdatesPerSec: s.UpdatesPerSecond,
		FPS:           s.FPS,
		SubStepPct:    s.PhasePct[PhaseSubStep],
		ReducePct:     s.PhasePct[PhaseReduce],
		PackPct:       s.PhasePct[PhasePack],
		RenderPct:     s.PhasePct[PhaseRender],
	}
}

package engine

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/ember/telemetry"
)

// maybeEmitStats closes the stats window once enough wall time has
// passed. The synchronous field scan only runs at window close, so its
// cost amortizes over the whole window.
func (e *Engine) maybeEmitStats() {
	if e.statsWindowSec <= 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(e.lastWindowWall).Seconds()
	if elapsed < e.statsWindowSec {
		return
	}
	e.flushStats(now, elapsed)
}

// FlushStats closes the current stats window immediately. Unload uses
// it so short runs still produce a final row.
func (e *Engine) FlushStats() {
	now := time.Now()
	e.flushStats(now, now.Sub(e.lastWindowWall).Seconds())
}

func (e *Engine) flushStats(now time.Time, elapsed float64) {
	fs := telemetry.ComputeFieldStats(e.field.Active())

	stats := telemetry.WindowStats{
		WindowStartFrame: e.windowStartFrame,
		WindowEndFrame:   e.frame,
		SimTimeSec:       float64(e.simTime),
		MeanEnergy:       float64(e.rec.GlobalAverage),
		MaxEnergy:        fs.Max,
		EnergyP10:        fs.P10,
		EnergyP50:        fs.P50,
		EnergyP90:        fs.P90,
		ActiveFraction:   fs.ActiveFraction,
		BandLow:          fs.Bands[0],
		BandMid:          fs.Bands[1],
		BandHigh:         fs.Bands[2],
		BandPeak:         fs.Bands[3],
		GridSize:         e.field.Size(),
		Backend:          e.backend.Name(),
	}
	if elapsed > 0 {
		stats.FPS = float64(e.frame-e.windowStartFrame) / elapsed
		stats.SubStepsPerSec = float64(e.subSteps-e.windowStartSubSteps) / elapsed
	}

	perfStats := e.perf.Stats()

	if e.statsCallback != nil {
		e.statsCallback(stats)
	}
	if e.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}
	if err := e.output.WriteStats(stats); err != nil {
		slog.Error("failed to write stats", "error", err)
	}
	if err := e.output.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
		slog.Error("failed to write perf stats", "error", err)
	}
	e.monitor.Broadcast(stats)

	e.windowStartFrame = e.frame
	e.windowStartSubSteps = e.subSteps
	e.lastWindowWall = now
}

package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate a few engine updates
	for i := 0; i < 5; i++ {
		pc.StartUpdate()
		pc.StartPhase(PhaseSubStep)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseRender)
		time.Sleep(200 * time.Microsecond)
		pc.EndUpdate()
	}

	stats := pc.Stats()

	// Verify we got timing data
	if stats.AvgUpdateDuration <= 0 {
		t.Error("expected positive average update duration")
	}

	// Verify phases are tracked
	if len(stats.PhaseAvg) == 0 {
		t.Error("expected phase averages to be populated")
	}

	if _, ok := stats.PhaseAvg[PhaseSubStep]; !ok {
		t.Error("expected sub_step phase to be tracked")
	}

	if _, ok := stats.PhaseAvg[PhaseRender]; !ok {
		t.Error("expected render phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	// Fill window completely
	for i := 0; i < 10; i++ {
		pc.StartUpdate()
		pc.StartPhase(PhaseSubStep)
		pc.EndUpdate()
	}

	stats := pc.Stats()

	// Should have data
	if stats.AvgUpdateDuration <= 0 {
		t.Error("expected positive average update duration after window filled")
	}

	if stats.UpdatesPerSecond <= 0 {
		t.Error("expected positive updates per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate with uneven phase durations
	for i := 0; i < 5; i++ {
		pc.StartUpdate()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndUpdate()
	}

	stats := pc.Stats()

	fastPct := stats.PhasePct["fast"]
	slowPct := stats.PhasePct["slow"]

	// Slow phase should take more % than fast
	if slowPct <= fastPct {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	// Empty collector should return zero values without panicking
	if stats.AvgUpdateDuration != 0 {
		t.Error("expected zero avg update duration for empty collector")
	}

	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}

	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// First call establishes baseline
	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond) // ~60fps frame time
	// Second call measures duration
	pc.RecordFrame()

	stats := pc.Stats()

	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}

	if stats.FPS <= 0 {
		t.Error("expected positive FPS")
	}

	// With 16ms frames, expect ~60 FPS (allow range 40-80)
	if stats.FPS < 40 || stats.FPS > 80 {
		t.Errorf("expected FPS between 40-80 with 16ms frame time, got %v", stats.FPS)
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	stats := PerfStats{
		AvgUpdateDuration: 500 * time.Microsecond,
		MinUpdateDuration: 100 * time.Microsecond,
		MaxUpdateDuration: 900 * time.Microsecond,
		PhasePct: map[string]float64{
			PhaseSubStep: 60,
			PhaseReduce:  5,
			PhasePack:    1,
			PhaseRender:  30,
		},
		UpdatesPerSecond: 2000,
		FPS:              59.9,
	}

	row := stats.ToCSV(1234)

	if row.WindowEnd != 1234 {
		t.Errorf("expected window end 1234, got %d", row.WindowEnd)
	}
	if row.AvgUpdateUS != 500 {
		t.Errorf("expected avg 500us, got %d", row.AvgUpdateUS)
	}
	if row.SubStepPct != 60 || row.ReducePct != 5 || row.PackPct != 1 || row.RenderPct != 30 {
		t.Errorf("phase percentages not carried through: %+v", row)
	}
	if row.FPS != 59.9 {
		t.Errorf("expected fps 59.9, got %v", row.FPS)
	}
}

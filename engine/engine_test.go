package engine

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/ember/sim"
)

func newHeadless(t *testing.T, speed int) *Engine {
	t.Helper()
	e, err := New(Options{
		Seed:     42,
		Headless: true,
		GridSize: 32,
		Speed:    speed,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Unload)
	return e
}

func TestHeadlessUpdateAdvances(t *testing.T) {
	e := newHeadless(t, 2)

	for i := 0; i < 10; i++ {
		e.UpdateHeadless()
	}

	if e.Frame() != 10 {
		t.Errorf("frame = %d, want 10", e.Frame())
	}
	if e.SubSteps() != 20 {
		t.Errorf("sub-steps = %d, want 20", e.SubSteps())
	}
	want := 20 * sim.DT
	if math.Abs(float64(e.SimTime()-want)) > 1e-4 {
		t.Errorf("sim time = %v, want %v", e.SimTime(), want)
	}
	if err := e.Fault(); err != nil {
		t.Errorf("unexpected fault: %v", err)
	}
}

func TestPauseStopsSubSteps(t *testing.T) {
	e := newHeadless(t, 2)

	e.TogglePause()
	if e.Speed() != 0 {
		t.Fatalf("speed after pause = %d, want 0", e.Speed())
	}

	e.UpdateHeadless()
	if e.SubSteps() != 0 {
		t.Errorf("paused engine stepped: %d sub-steps", e.SubSteps())
	}
	if e.Frame() != 1 {
		t.Errorf("frame = %d, want 1 (frames tick while paused)", e.Frame())
	}

	e.TogglePause()
	if e.Speed() != 2 {
		t.Errorf("speed after resume = %d, want 2", e.Speed())
	}
}

func TestSetParameter(t *testing.T) {
	e := newHeadless(t, 1)

	if err := e.SetParameter("growthRate", 0.3); err != nil {
		t.Fatalf("SetParameter(growthRate): %v", err)
	}
	if got := e.Params().GrowthRate; got != 0.3 {
		t.Errorf("growthRate = %v, want 0.3", got)
	}

	// Discrete parameters snap to the nearest option.
	if err := e.SetParameter("neighborMode", 20); err != nil {
		t.Fatalf("SetParameter(neighborMode): %v", err)
	}
	if got := e.Params().NeighborMode; got != 18 {
		t.Errorf("neighborMode = %d, want 18", got)
	}

	if err := e.SetParameter("noSuchParam", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestParameterChangeAppliesNextFrame(t *testing.T) {
	e := newHeadless(t, 1)

	if err := e.SetParameter("outerRadius", 9); err != nil {
		t.Fatalf("SetParameter: %v", err)
	}
	e.UpdateHeadless()

	// The rebuilt kernel must reach the new radius.
	var maxReach int32
	for _, o := range e.kernel.Offsets {
		for _, d := range [3]int32{o.DX, o.DY, o.DZ} {
			if d < 0 {
				d = -d
			}
			if d > maxReach {
				maxReach = d
			}
		}
	}
	if maxReach < 8 {
		t.Errorf("kernel reach = %d after widening outerRadius to 9", maxReach)
	}
}

func TestPresetRoundTrip(t *testing.T) {
	e := newHeadless(t, 1)
	path := filepath.Join(t.TempDir(), "preset.yaml")

	if err := e.SetParameter("growthCenter", 0.41); err != nil {
		t.Fatalf("SetParameter: %v", err)
	}
	if err := e.SetParameter("raySteps", 128); err != nil {
		t.Fatalf("SetParameter: %v", err)
	}
	if err := e.SavePreset(path); err != nil {
		t.Fatalf("SavePreset: %v", err)
	}

	if err := e.SetParameter("growthCenter", 0.1); err != nil {
		t.Fatalf("SetParameter: %v", err)
	}
	if err := e.LoadPresetFile(path); err != nil {
		t.Fatalf("LoadPresetFile: %v", err)
	}

	rec := e.Params()
	if rec.GrowthCenter != 0.41 {
		t.Errorf("growthCenter = %v after load, want 0.41", rec.GrowthCenter)
	}
	if rec.RaySteps != 128 {
		t.Errorf("raySteps = %d after load, want 128", rec.RaySteps)
	}
}

func TestReseedRestartsClock(t *testing.T) {
	e := newHeadless(t, 2)

	for i := 0; i < 5; i++ {
		e.UpdateHeadless()
	}
	if e.SimTime() == 0 {
		t.Fatal("sim time did not advance")
	}

	e.Reseed()
	if e.SimTime() != 0 {
		t.Errorf("sim time = %v after reseed, want 0", e.SimTime())
	}
	if e.GlobalAverage() != 0 {
		t.Errorf("global average = %v after reseed, want 0", e.GlobalAverage())
	}
}

func TestCycleGridSize(t *testing.T) {
	e := newHeadless(t, 1)

	if e.GridSize() != 32 {
		t.Fatalf("grid size = %d, want 32", e.GridSize())
	}
	if got := e.CycleGridSize(); got != 64 {
		t.Errorf("CycleGridSize = %d, want 64", got)
	}
	if e.GridSize() != 64 {
		t.Errorf("grid size = %d after cycle, want 64", e.GridSize())
	}
}

func TestResizeGridRejectsUnsupported(t *testing.T) {
	e := newHeadless(t, 1)

	if err := e.ResizeGrid(33); err == nil {
		t.Error("expected error for unsupported grid size")
	}
	if e.GridSize() != 32 {
		t.Errorf("grid size = %d after rejected resize, want 32", e.GridSize())
	}
}

func TestNewRejectsBadGridSize(t *testing.T) {
	_, err := New(Options{Headless: true, GridSize: 33, Speed: 1})
	if err == nil {
		t.Fatal("expected error for unsupported grid size")
	}
}

func TestFieldStaysInRange(t *testing.T) {
	e := newHeadless(t, 4)

	for i := 0; i < 30; i++ {
		e.UpdateHeadless()
	}

	fs := e.FieldStats()
	if fs.Max < 0 || fs.Max > 1 {
		t.Errorf("max energy = %v outside [0, 1]", fs.Max)
	}
	if fs.P10 < 0 {
		t.Errorf("p10 = %v below 0", fs.P10)
	}
}

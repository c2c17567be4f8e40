// Package engine owns the run loop: it advances the simulation at a
// fixed sub-step rate, folds reduction results back into the parameter
// record, renders the volume, and routes input, telemetry, presets, and
// snapshots. Everything above it (main, the ui panel) talks to the
// Engine through the operations defined here.
package engine

import (
	"fmt"
	"image/color"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pthm-cable/ember/camera"
	"github.com/pthm-cable/ember/compute"
	"github.com/pthm-cable/ember/config"
	"github.com/pthm-cable/ember/params"
	"github.com/pthm-cable/ember/render"
	"github.com/pthm-cable/ember/sim"
	"github.com/pthm-cable/ember/telemetry"
	"github.com/pthm-cable/ember/ui"
)

// maxSpeed caps the sub-steps per frame.
const maxSpeed = 8

// Options configures a new Engine. Zero values defer to the loaded
// config where one applies; Speed uses -1 for "config default" because
// 0 is a valid request (start paused).
type Options struct {
	// Config, when nil, loads the embedded defaults.
	Config *config.Config

	// Seed drives field seeding and per-frame noise. The engine uses it
	// literally; main substitutes the wall clock for 0.
	Seed int64

	// Headless skips the display texture and the ui chrome. Update still
	// renders nothing until a snapshot asks for a frame.
	Headless bool

	// GridSize overrides the configured cube side when positive.
	GridSize int

	// Speed overrides the configured sub-step multiplier when >= 0.
	Speed int

	// PresetPath loads a parameter preset at boot.
	PresetPath string

	// SnapshotDir receives snapshot PNGs and preset YAMLs.
	SnapshotDir string

	// OutputDir enables CSV telemetry when non-empty.
	OutputDir string

	// LogStats emits WindowStats and PerfStats through slog each window.
	LogStats bool

	// StatsWindowSec overrides the configured stats cadence when positive.
	StatsWindowSec float64

	// MonitorAddr overrides the configured websocket feed address.
	MonitorAddr string

	// StatsCallback receives every completed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// Engine is the orchestrator. Not safe for concurrent use; Update, Draw,
// and every operation run on the caller's loop goroutine.
type Engine struct {
	cfg *config.Config

	rec params.Record
	cam *camera.Camera

	field       *sim.FieldBuffer
	kernel      *sim.Kernel
	kernelDirty bool

	pool      *sim.Pool
	backend   compute.Backend
	reduction *sim.ReductionPipeline

	renderer *render.Renderer
	display  *render.Display
	panel    *ui.Panel
	hud      *ui.HUD
	lastPix  []color.RGBA

	perf    *telemetry.PerfCollector
	output  *telemetry.OutputManager
	monitor *telemetry.Monitor

	rng  *rand.Rand
	seed int64

	simTime     float32
	frame       int64
	subSteps    int64
	speed       int
	pausedSpeed int

	frameSeed uint32
	lastBlock params.Block

	fault        error
	faultRetried bool

	headless    bool
	snapshotDir string

	logStats       bool
	statsWindowSec float64
	statsCallback  func(telemetry.WindowStats)

	windowStartFrame    int64
	windowStartSubSteps int64
	lastWindowWall      time.Time
}

// New builds a fully wired engine. In windowed mode the raylib window
// must already exist because the display texture needs a GL context.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load("")
		if err != nil {
			return nil, fmt.Errorf("engine: loading defaults: %w", err)
		}
		cfg = loaded
	}

	gridSize := cfg.Grid.Size
	rec := params.Defaults()
	if opts.PresetPath != "" {
		preset, err := params.LoadPreset(opts.PresetPath)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		rec = preset.Params
		if preset.GridSize > 0 {
			gridSize = preset.GridSize
		}
	}
	if opts.GridSize > 0 {
		gridSize = opts.GridSize
	}
	if !config.ValidGridSize(gridSize) {
		return nil, fmt.Errorf("engine: unsupported grid size %d (supported: %v)", gridSize, config.GridSizes)
	}

	speed := cfg.Simulation.Speed
	if opts.Speed >= 0 {
		speed = opts.Speed
	}
	if speed > maxSpeed {
		speed = maxSpeed
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}
	monitorAddr := cfg.Monitor.Addr
	if opts.MonitorAddr != "" {
		monitorAddr = opts.MonitorAddr
	}

	e := &Engine{
		cfg:            cfg,
		rec:            rec,
		cam:            camera.New(),
		rng:            rand.New(rand.NewSource(opts.Seed)),
		seed:           opts.Seed,
		speed:          speed,
		pausedSpeed:    1,
		headless:       opts.Headless,
		snapshotDir:    opts.SnapshotDir,
		logStats:       opts.LogStats,
		statsWindowSec: statsWindow,
		statsCallback:  opts.StatsCallback,
	}

	e.field = sim.NewFieldBuffer(gridSize)
	e.field.Seed(e.rng, float32(cfg.Grid.SeedLevel))
	e.kernel = sim.BuildKernel(&e.rec)
	e.reduction = sim.NewReductionPipeline()
	e.pool = sim.NewPool(cfg.Compute.Workers)

	backend, err := compute.New(cfg.Compute.Backend, e.pool)
	if err != nil {
		e.pool.Stop()
		return nil, fmt.Errorf("engine: compute backend: %w", err)
	}
	e.backend = backend

	e.renderer = render.New(cfg.Derived.RenderW, cfg.Derived.RenderH, float32(cfg.Render.FOVDegrees), e.pool)
	if !opts.Headless {
		e.display = render.NewDisplay(cfg.Derived.RenderW, cfg.Derived.RenderH)
		e.panel = ui.NewPanel(cfg.Derived.ScreenW32-ui.PanelWidth-10, 10, cfg.Derived.ScreenH32-20)
		e.hud = ui.NewHUD()
	}

	e.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)

	e.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		e.teardown()
		return nil, fmt.Errorf("engine: %w", err)
	}
	if err := e.output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write run config", "error", err)
	}

	e.monitor = telemetry.NewMonitor(monitorAddr)
	if err := e.monitor.Start(); err != nil {
		e.teardown()
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.lastWindowWall = time.Now()
	slog.Info("engine ready",
		"grid", gridSize,
		"backend", e.backend.Name(),
		"seed", opts.Seed,
		"speed", speed,
		"headless", opts.Headless)
	return e, nil
}

// Unload flushes the open stats window and releases every resource.
func (e *Engine) Unload() {
	if e.statsWindowSec > 0 && e.frame > e.windowStartFrame {
		e.FlushStats()
	}
	e.teardown()
}

func (e *Engine) teardown() {
	e.monitor.Close()
	if err := e.output.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
	if e.display != nil {
		e.display.Unload()
		e.display = nil
	}
	if e.backend != nil {
		e.backend.Release()
		e.backend = nil
	}
	if e.pool != nil {
		e.pool.Stop()
		e.pool = nil
	}
}

// SetParameter validates and applies one parameter by name. The kernel
// rebuilds lazily before the next sub-step so a slider drag costs one
// rebuild per frame at most.
func (e *Engine) SetParameter(name string, value float64) error {
	if err := e.rec.SetByName(name, value); err != nil {
		return err
	}
	e.kernelDirty = true
	return nil
}

// Params returns a copy of the current parameter record.
func (e *Engine) Params() params.Record { return e.rec }

// Reseed refills the field with fresh low-energy noise and restarts the
// run clock. The reduction pipeline is reset so no stale mean from the
// old field ever lands.
func (e *Engine) Reseed() {
	e.field.Seed(e.rng, float32(e.cfg.Grid.SeedLevel))
	e.reduction.Reset()
	e.rec.GlobalAverage = 0
	e.simTime = 0
	slog.Info("field reseeded", "grid", e.field.Size())
}

// ResizeGrid switches the cube side to n, reprovisions both grids, and
// reseeds. The supported set doubles as the resource ceiling.
func (e *Engine) ResizeGrid(n int) error {
	if !config.ValidGridSize(n) {
		return fmt.Errorf("engine: unsupported grid size %d (supported: %v)", n, config.GridSizes)
	}
	if n == e.field.Size() {
		return nil
	}
	e.field.Resize(n)
	e.field.Seed(e.rng, float32(e.cfg.Grid.SeedLevel))
	e.reduction.Reset()
	e.rec.GlobalAverage = 0
	e.simTime = 0
	slog.Info("grid resized", "size", n)
	return nil
}

// CycleGridSize steps to the next supported grid size and returns it.
func (e *Engine) CycleGridSize() int {
	cur := e.field.Size()
	next := config.GridSizes[0]
	for i, s := range config.GridSizes {
		if s == cur {
			next = config.GridSizes[(i+1)%len(config.GridSizes)]
			break
		}
	}
	if err := e.ResizeGrid(next); err != nil {
		return cur
	}
	return next
}

// SetSpeed sets the sub-step multiplier. 0 pauses; values clamp to
// [0, 8].
func (e *Engine) SetSpeed(n int) {
	if n < 0 {
		n = 0
	}
	if n > maxSpeed {
		n = maxSpeed
	}
	e.speed = n
}

// TogglePause flips between speed 0 and the last running speed.
func (e *Engine) TogglePause() {
	if e.speed > 0 {
		e.pausedSpeed = e.speed
		e.speed = 0
		return
	}
	if e.pausedSpeed < 1 {
		e.pausedSpeed = 1
	}
	e.speed = e.pausedSpeed
}

// SetCameraRotation sets absolute yaw and pitch in degrees.
func (e *Engine) SetCameraRotation(yawDeg, pitchDeg float32) {
	e.cam.SetRotation(yawDeg, pitchDeg)
}

// AdjustRotation nudges yaw and pitch in degrees.
func (e *Engine) AdjustRotation(dYaw, dPitch float32) {
	e.cam.AdjustRotation(dYaw, dPitch)
}

// AdjustDistance nudges the orbit distance in cube units.
func (e *Engine) AdjustDistance(delta float32) {
	e.cam.AdjustDistance(delta)
}

// SetPanKey records the held state of one directional pan input.
func (e *Engine) SetPanKey(d camera.Direction, held bool) {
	e.cam.SetPanKey(d, held)
}

// ReinitCompute rebuilds the compute backend and clears a latched
// fault. The first reinit after a fault retries the configured backend;
// once that retry is burned, further reinits pin the CPU stepper.
func (e *Engine) ReinitCompute() {
	kind := e.cfg.Compute.Backend
	if e.faultRetried {
		kind = compute.KindCPU
	}
	if e.fault != nil {
		e.faultRetried = true
	}
	e.backend.Release()

	backend, err := compute.New(kind, e.pool)
	if err != nil {
		slog.Error("compute reinit failed, using cpu stepper", "error", err)
		backend = compute.NewCPU(e.pool)
	}
	e.backend = backend
	e.fault = nil
	slog.Info("compute backend reinitialized", "backend", backend.Name())
}

// Accessors for the ui layer and tools.

func (e *Engine) Frame() int64           { return e.frame }
func (e *Engine) SubSteps() int64        { return e.subSteps }
func (e *Engine) SimTime() float32       { return e.simTime }
func (e *Engine) GridSize() int          { return e.field.Size() }
func (e *Engine) Speed() int             { return e.speed }
func (e *Engine) BackendName() string    { return e.backend.Name() }
func (e *Engine) GlobalAverage() float32 { return e.rec.GlobalAverage }
func (e *Engine) Seed() int64            { return e.seed }

// FieldStats scans the active grid synchronously. Tuning tools use it;
// the frame loop goes through the windowed telemetry instead.
func (e *Engine) FieldStats() telemetry.FieldStats {
	return telemetry.ComputeFieldStats(e.field.Active())
}

// Fault returns the latched compute fault, or nil.
func (e *Engine) Fault() error { return e.fault }

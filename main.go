package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ember/config"
	"github.com/pthm-cable/ember/engine"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	presetPath := flag.String("preset", "", "Parameter preset to load at boot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	gridSize := flag.Int("size", 0, "Grid cube side (0 = use config)")
	speed := flag.Int("speed", -1, "Sub-steps per frame (-1 = use config, 0 = start paused)")
	maxFrames := flag.Int64("max-frames", 0, "Stop after N frames (0 = unlimited)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	monitorAddr := flag.String("monitor-addr", "", "Websocket stats feed address (empty = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := engine.Options{
		Config:         cfg,
		Seed:           rngSeed,
		Headless:       *headless,
		GridSize:       *gridSize,
		Speed:          *speed,
		PresetPath:     *presetPath,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		MonitorAddr:    *monitorAddr,
	}

	if *headless {
		runHeadless(opts, *maxFrames)
		return
	}
	runWindowed(cfg, opts, *maxFrames)
}

// runHeadless drives the engine without raylib: no window, no renderer
// output, just the sub-step loop and telemetry.
func runHeadless(opts engine.Options, maxFrames int64) {
	e, err := engine.New(opts)
	if err != nil {
		slog.Error("failed to start engine", "error", err)
		os.Exit(1)
	}
	defer e.Unload()

	slog.Info("starting headless run",
		"seed", opts.Seed,
		"max_frames", maxFrames,
	)

	for {
		e.UpdateHeadless()

		if e.Fault() != nil {
			slog.Error("stopping on compute fault", "error", e.Fault())
			return
		}
		if maxFrames > 0 && e.Frame() >= maxFrames {
			slog.Info("max frames reached", "frame", e.Frame())
			return
		}
	}
}

// runWindowed opens the raylib window first so the display texture has
// a GL context, then runs the input/update/draw loop.
func runWindowed(cfg *config.Config, opts engine.Options, maxFrames int64) {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Ember")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	e, err := engine.New(opts)
	if err != nil {
		slog.Error("failed to start engine", "error", err)
		os.Exit(1)
	}
	defer e.Unload()

	for !rl.WindowShouldClose() {
		e.HandleInput()
		e.Update(rl.GetFrameTime())
		e.Draw()

		if maxFrames > 0 && e.Frame() >= maxFrames {
			break
		}
	}
}

package engine

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ember/camera"
	"github.com/pthm-cable/ember/params"
)

const (
	rotateSens = float32(0.25) // degrees per pixel of drag
	wheelSens  = float32(0.2)  // cube units per wheel notch
)

// HandleInput polls raylib and applies camera, speed, and action keys.
// Windowed mode only; call once per frame before Update.
func (e *Engine) HandleInput() {
	e.cam.SetPanKey(camera.PanForward, rl.IsKeyDown(rl.KeyW) || rl.IsKeyDown(rl.KeyUp))
	e.cam.SetPanKey(camera.PanBack, rl.IsKeyDown(rl.KeyS) || rl.IsKeyDown(rl.KeyDown))
	e.cam.SetPanKey(camera.PanLeft, rl.IsKeyDown(rl.KeyA) || rl.IsKeyDown(rl.KeyLeft))
	e.cam.SetPanKey(camera.PanRight, rl.IsKeyDown(rl.KeyD) || rl.IsKeyDown(rl.KeyRight))

	// Drag to orbit, unless the cursor is over the panel.
	if rl.IsMouseButtonDown(rl.MouseButtonLeft) && !e.panel.Contains(rl.GetMousePosition()) {
		delta := rl.GetMouseDelta()
		e.cam.AdjustRotation(delta.X*rotateSens, delta.Y*rotateSens)
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		e.cam.AdjustDistance(-wheel * wheelSens)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		e.cam.Reset()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		e.TogglePause()
	}
	if rl.IsKeyPressed(rl.KeyComma) {
		e.SetSpeed(e.speed - 1)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		e.SetSpeed(e.speed + 1)
	}

	if rl.IsKeyPressed(rl.KeyR) {
		e.Reseed()
	}
	if rl.IsKeyPressed(rl.KeyG) {
		e.CycleGridSize()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		e.CycleOption("paletteMode")
	}

	if rl.IsKeyPressed(rl.KeyF12) {
		if _, err := e.SaveSnapshot(); err != nil {
			slog.Error("snapshot failed", "error", err)
		}
	}

	if rl.IsKeyPressed(rl.KeyTab) {
		e.panel.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
}

// CycleOption advances a discrete parameter to its next option. Names
// without an options list are ignored.
func (e *Engine) CycleOption(name string) {
	spec, ok := params.SpecFor(name)
	if !ok || len(spec.Options) == 0 {
		return
	}
	cur, err := e.rec.GetByName(name)
	if err != nil {
		return
	}
	next := spec.Options[0]
	for i, opt := range spec.Options {
		if opt == int(cur) {
			next = spec.Options[(i+1)%len(spec.Options)]
			break
		}
	}
	if err := e.SetParameter(name, float64(next)); err != nil {
		slog.Error("failed to set parameter", "name", name, "error", err)
	}
}

package engine

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ember/render"
	"github.com/pthm-cable/ember/ui"
)

// Draw presents the last rendered frame with the hud and panel on top.
// Windowed mode only; call after Update, once per raylib frame.
func (e *Engine) Draw() {
	if e.display == nil {
		return
	}

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	e.display.Present(e.lastPix, e.cfg.Screen.Width, e.cfg.Screen.Height)

	e.hud.Draw(ui.HUDData{
		Frame:      e.frame,
		SimTime:    e.simTime,
		Speed:      e.speed,
		FPS:        rl.GetFPS(),
		GridSize:   e.field.Size(),
		Backend:    e.backend.Name(),
		Palette:    render.PaletteName(e.rec.PaletteMode),
		MeanEnergy: e.rec.GlobalAverage,
		Paused:     e.speed == 0,
		Fault:      e.fault,
	})
	e.panel.Draw(e)
	e.hud.DrawControls(int32(e.cfg.Screen.Width), int32(e.cfg.Screen.Height))

	rl.EndDrawing()
	e.perf.RecordFrame()
}

package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds everything the heads-up display shows for one frame.
type HUDData struct {
	Frame      int64
	SimTime    float32
	Speed      int
	FPS        int32
	GridSize   int
	Backend    string
	Palette    string
	MeanEnergy float32
	Paused     bool
	Fault      error
}

// HUD renders the top-left status block and the bottom control legend.
type HUD struct {
	theme Theme
}

// NewHUD creates a HUD with the default theme.
func NewHUD() *HUD {
	return &HUD{theme: DefaultTheme()}
}

// Draw renders the status block.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText("Ember", 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Grid: %d | Backend: %s | Palette: %s | Mean: %.4f",
			data.GridSize, data.Backend, data.Palette, data.MeanEnergy),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Frame: %d | Sim: %.1fs | Speed: %dx | FPS: %d",
			data.Frame, data.SimTime, data.Speed, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	if data.Fault != nil {
		rl.DrawText(fmt.Sprintf("COMPUTE FAULT: %v", data.Fault), 10, 75, 16, h.theme.FaultColor)
		return
	}
	statusText := "Running"
	if data.Paused {
		statusText = "PAUSED"
	}
	rl.DrawText(statusText, 10, 75, 16, h.theme.AccentColor)
}

// controlsLegend is the key reference along the bottom edge.
const controlsLegend = "Drag: orbit | Wheel: zoom | WASD: pan | Home: reset | Space: pause | ,/.: speed | R: reseed | G: grid | P: palette | F12: snapshot | Tab: panel"

// DrawControls renders the control legend.
func (h *HUD) DrawControls(screenWidth, screenHeight int32) {
	rl.DrawText(controlsLegend, 10, screenHeight-25, 14, rl.Gray)
}

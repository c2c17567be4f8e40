// Package ui draws the parameter panel and the heads-up display over
// the volume view. The panel drives the engine through the Controller
// interface so the ui layer stays free of engine internals.
package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ember/params"
)

// Controller is the slice of engine surface the panel needs.
// *engine.Engine implements it.
type Controller interface {
	Params() params.Record
	SetParameter(name string, value float64) error
	CycleOption(name string)

	Speed() int
	TogglePause()
	Reseed()
	GridSize() int
	CycleGridSize() int

	SavePreset(path string) error
	LoadPresetFile(path string) error
	SaveSnapshot() (string, error)

	Fault() error
	ReinitCompute()
}

// Theme holds ui styling constants.
type Theme struct {
	PanelBg     rl.Color
	PanelBorder rl.Color
	LabelColor  rl.Color
	ValueColor  rl.Color
	AccentColor rl.Color
	FaultColor  rl.Color

	Padding        float32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the stock dark theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:     rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder: rl.Color{R: 60, G: 70, B: 80, A: 255},
		LabelColor:  rl.LightGray,
		ValueColor:  rl.White,
		AccentColor: rl.Yellow,
		FaultColor:  rl.Color{R: 230, G: 80, B: 70, A: 255},

		Padding:        10,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}

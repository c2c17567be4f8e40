package ui

import (
	"fmt"
	"log/slog"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ember/params"
	"github.com/pthm-cable/ember/render"
)

// PanelWidth is the fixed width of the parameter panel.
const PanelWidth = 260

// bandLabels name the four energy bands, low to peak, in bit order.
var bandLabels = [4]string{"Low", "Mid", "High", "Peak"}

// Panel is the right-side parameter panel: a slider per continuous
// parameter, checkboxes for the render bands, cycle buttons for the
// discrete modes, and the run-control buttons. Tab toggles it.
type Panel struct {
	bounds  rl.Rectangle
	theme   Theme
	visible bool
}

// NewPanel creates a panel anchored at x, y with the given height.
func NewPanel(x, y, height float32) *Panel {
	return &Panel{
		bounds:  rl.Rectangle{X: x, Y: y, Width: PanelWidth, Height: height},
		theme:   DefaultTheme(),
		visible: true,
	}
}

// Toggle flips panel visibility.
func (p *Panel) Toggle() { p.visible = !p.visible }

// Visible reports whether the panel is shown.
func (p *Panel) Visible() bool { return p.visible }

// Contains reports whether a screen point lands on the visible panel.
// Input handling uses it to keep drags over the panel from orbiting
// the camera.
func (p *Panel) Contains(pt rl.Vector2) bool {
	return p.visible && rl.CheckCollisionPointRec(pt, p.bounds)
}

// Draw renders the panel and applies any edits to the controller.
func (p *Panel) Draw(c Controller) {
	if !p.visible {
		return
	}

	t := p.theme
	rl.DrawRectangleRec(p.bounds, t.PanelBg)
	rl.DrawRectangleLinesEx(p.bounds, 1, t.PanelBorder)

	rec := c.Params()
	x := p.bounds.X + t.Padding
	y := p.bounds.Y + t.Padding
	w := p.bounds.Width - 2*t.Padding

	for _, spec := range params.Specs {
		if spec.Name == "bandMask" || len(spec.Options) > 0 {
			continue
		}
		y = p.drawSlider(c, &rec, spec, x, y, w)
	}

	y = p.drawBands(c, &rec, x, y)
	y = p.drawOption(c, &rec, "neighborMode", x, y, w)
	y = p.drawOption(c, &rec, "raySteps", x, y, w)
	y = p.drawOption(c, &rec, "paletteMode", x, y, w)

	y += 4
	rl.DrawLine(int32(x), int32(y), int32(x+w), int32(y), t.PanelBorder)
	y += 8

	y = p.drawActions(c, x, y, w)

	if c.Fault() != nil {
		if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 24}, "Restart Compute") {
			c.ReinitCompute()
		}
	}
}

// drawSlider renders one continuous parameter row and returns the next
// y cursor.
func (p *Panel) drawSlider(c Controller, rec *params.Record, spec params.Spec, x, y, w float32) float32 {
	t := p.theme
	cur, err := rec.GetByName(spec.Name)
	if err != nil {
		return y
	}

	rl.DrawText(spec.Label, int32(x), int32(y), t.FontSize, t.LabelColor)
	val := fmt.Sprintf("%.3f", cur)
	valW := rl.MeasureText(val, t.FontSize)
	rl.DrawText(val, int32(x+w)-valW, int32(y), t.FontSize, t.ValueColor)
	y += 14

	next := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: w, Height: 12},
		"", "",
		float32(cur), float32(spec.Min), float32(spec.Max),
	)
	if next != float32(cur) {
		if err := c.SetParameter(spec.Name, float64(next)); err != nil {
			slog.Error("failed to set parameter", "name", spec.Name, "error", err)
		}
	}
	return y + 16
}

// drawBands renders the four band checkboxes on one row.
func (p *Panel) drawBands(c Controller, rec *params.Record, x, y float32) float32 {
	t := p.theme
	rl.DrawText("Bands", int32(x), int32(y), t.FontSize, t.LabelColor)
	y += 14

	mask := rec.BandMask
	next := 0
	bx := x
	for i, label := range bandLabels {
		on := mask&(1<<i) != 0
		if gui.CheckBox(rl.Rectangle{X: bx, Y: y, Width: 14, Height: 14}, label, on) {
			next |= 1 << i
		}
		bx += 58
	}
	if next != mask {
		if err := c.SetParameter("bandMask", float64(next)); err != nil {
			slog.Error("failed to set parameter", "name", "bandMask", "error", err)
		}
	}
	return y + 20
}

// drawOption renders a label plus a cycle button for one discrete
// parameter.
func (p *Panel) drawOption(c Controller, rec *params.Record, name string, x, y, w float32) float32 {
	t := p.theme
	spec, ok := params.SpecFor(name)
	if !ok {
		return y
	}
	cur, err := rec.GetByName(name)
	if err != nil {
		return y
	}

	rl.DrawText(spec.Label, int32(x), int32(y+4), t.FontSize, t.LabelColor)

	label := fmt.Sprintf("%d", int(cur))
	if name == "paletteMode" {
		label = render.PaletteName(int(cur))
	}
	if gui.Button(rl.Rectangle{X: x + w - 90, Y: y, Width: 90, Height: 20}, label) {
		c.CycleOption(name)
	}
	return y + 26
}

// drawActions renders the run-control buttons as two rows of three.
func (p *Panel) drawActions(c Controller, x, y, w float32) float32 {
	bw := (w - 8) / 3

	pauseLabel := "Pause"
	if c.Speed() == 0 {
		pauseLabel = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: bw, Height: 24}, pauseLabel) {
		c.TogglePause()
	}
	if gui.Button(rl.Rectangle{X: x + bw + 4, Y: y, Width: bw, Height: 24}, "Reseed") {
		c.Reseed()
	}
	if gui.Button(rl.Rectangle{X: x + 2*(bw+4), Y: y, Width: bw, Height: 24}, fmt.Sprintf("Grid %d", c.GridSize())) {
		c.CycleGridSize()
	}
	y += 28

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: bw, Height: 24}, "Snapshot") {
		if _, err := c.SaveSnapshot(); err != nil {
			slog.Error("snapshot failed", "error", err)
		}
	}
	if gui.Button(rl.Rectangle{X: x + bw + 4, Y: y, Width: bw, Height: 24}, "Save") {
		if err := c.SavePreset(""); err != nil {
			slog.Error("preset save failed", "error", err)
		}
	}
	if gui.Button(rl.Rectangle{X: x + 2*(bw+4), Y: y, Width: bw, Height: 24}, "Load") {
		if err := c.LoadPresetFile(""); err != nil {
			slog.Error("preset load failed", "error", err)
		}
	}
	return y + 28
}

// Kernel preview tool - interactive cross-section and growth curve
// visualization with sliders.
//
// Usage: go run ./cmd/kernelview
package main

import (
	"fmt"
	"image/color"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ember/params"
	"github.com/pthm-cable/ember/sim"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30

	// texSide covers the largest possible kernel: outerRadius maxes at
	// 12, so offsets span [-12, 12] per axis.
	texSide = 25
)

func main() {
	rl.InitWindow(windowWidth, windowHeight, "Kernel Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	rec := params.Defaults()

	pixels := make([]color.RGBA, texSide*texSide)
	img := rl.GenImageColor(texSide, texSide, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	kernel := sim.BuildKernel(&rec)
	crossSection(kernel, pixels)
	rl.UpdateTexture(texture, pixels)

	needsRegen := false

	for !rl.WindowShouldClose() {
		if needsRegen {
			kernel = sim.BuildKernel(&rec)
			crossSection(kernel, pixels)
			rl.UpdateTexture(texture, pixels)
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		// Cross-section at dz=0
		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: texSide, Height: texSide},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		drawGrowthCurve(10, 540, previewSize, 130, &rec, kernel)

		rl.DrawText(
			fmt.Sprintf("Taps: %d  Neff: %.1f  |w|: %.2f  WidthScale: %.2f  WidthEff: %.4f",
				len(kernel.Offsets), kernel.Neff, kernel.AbsSum, kernel.WidthScale, kernel.WidthEff),
			10, 684, 16, rl.DarkGray,
		)

		// Control panel
		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Kernel Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		// Inner radius slider
		rl.DrawText("Inner Radius (growth disc)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newInnerR := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"1", "8",
			rec.InnerRadius, 1, 8,
		)
		rl.DrawText(fmt.Sprintf("%.2f", rec.InnerRadius), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newInnerR != rec.InnerRadius {
			rec.InnerRadius = newInnerR
			needsRegen = true
		}
		panelY += 35

		// Outer radius slider
		rl.DrawText("Outer Radius (suppression ring)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newOuterR := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"2", "12",
			rec.OuterRadius, 2, 12,
		)
		rl.DrawText(fmt.Sprintf("%.2f", rec.OuterRadius), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newOuterR != rec.OuterRadius {
			rec.OuterRadius = newOuterR
			needsRegen = true
		}
		panelY += 35

		// Inner strength slider
		rl.DrawText("Inner Strength", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newInnerS := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", "4",
			rec.InnerStrength, 0, 4,
		)
		rl.DrawText(fmt.Sprintf("%.2f", rec.InnerStrength), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newInnerS != rec.InnerStrength {
			rec.InnerStrength = newInnerS
			needsRegen = true
		}
		panelY += 35

		// Outer strength slider
		rl.DrawText("Outer Strength", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newOuterS := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"-4", "0",
			rec.OuterStrength, -4, 0,
		)
		rl.DrawText(fmt.Sprintf("%.2f", rec.OuterStrength), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newOuterS != rec.OuterStrength {
			rec.OuterStrength = newOuterS
			needsRegen = true
		}
		panelY += 35

		// Growth center slider
		rl.DrawText("Growth Center (potential target)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newCenter := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", "1",
			rec.GrowthCenter, 0, 1,
		)
		rl.DrawText(fmt.Sprintf("%.3f", rec.GrowthCenter), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newCenter != rec.GrowthCenter {
			rec.GrowthCenter = newCenter
			needsRegen = true
		}
		panelY += 35

		// Growth width slider
		rl.DrawText("Growth Width (bell sigma)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newWidth := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0.005", "0.5",
			rec.GrowthWidth, 0.005, 0.5,
		)
		rl.DrawText(fmt.Sprintf("%.3f", rec.GrowthWidth), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newWidth != rec.GrowthWidth {
			rec.GrowthWidth = newWidth
			needsRegen = true
		}
		panelY += 35

		// Width norm slider
		rl.DrawText("Width Norm (0 = no Neff correction)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newNorm := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", "1",
			rec.GrowthWidthNorm, 0, 1,
		)
		rl.DrawText(fmt.Sprintf("%.2f", rec.GrowthWidthNorm), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newNorm != rec.GrowthWidthNorm {
			rec.GrowthWidthNorm = newNorm
			needsRegen = true
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			rec = params.Defaults()
			needsRegen = true
		}
		panelY += 55

		// Output YAML
		rl.DrawText("Preset YAML:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		for _, line := range yamlLines(&rec) {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)

		if rl.IsKeyPressed(rl.KeyC) {
			yaml := ""
			for _, line := range yamlLines(&rec) {
				yaml += line + "\n"
			}
			rl.SetClipboardText(yaml)
		}

		rl.EndDrawing()
	}
}

// yamlLines formats the kernel parameters as preset YAML fragments.
func yamlLines(rec *params.Record) []string {
	return []string{
		"params:",
		fmt.Sprintf("  inner_radius: %.2f", rec.InnerRadius),
		fmt.Sprintf("  outer_radius: %.2f", rec.OuterRadius),
		fmt.Sprintf("  inner_strength: %.2f", rec.InnerStrength),
		fmt.Sprintf("  outer_strength: %.2f", rec.OuterStrength),
		fmt.Sprintf("  growth_center: %.3f", rec.GrowthCenter),
		fmt.Sprintf("  growth_width: %.3f", rec.GrowthWidth),
		fmt.Sprintf("  growth_width_norm: %.2f", rec.GrowthWidthNorm),
	}
}

// crossSection renders the dz=0 slice of the kernel weights into the
// pixel buffer, normalized by the largest weight magnitude.
func crossSection(k *sim.Kernel, pixels []color.RGBA) {
	bg := color.RGBA{R: 14, G: 16, B: 20, A: 255}
	for i := range pixels {
		pixels[i] = bg
	}

	var maxAbs float32
	for _, o := range k.Offsets {
		if o.DZ != 0 {
			continue
		}
		a := o.W
		if a < 0 {
			a = -a
		}
		if a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return
	}

	c := texSide / 2
	for _, o := range k.Offsets {
		if o.DZ != 0 {
			continue
		}
		x := c + int(o.DX)
		y := c + int(o.DY)
		if x < 0 || x >= texSide || y < 0 || y >= texSide {
			continue
		}
		pixels[y*texSide+x] = weightColor(o.W / maxAbs)
	}
}

// weightColor maps a normalized weight in [-1, 1] to a diverging
// palette: suppression in blue, growth in ember orange.
func weightColor(t float32) color.RGBA {
	if t >= 0 {
		return color.RGBA{
			R: uint8(40 + t*215),
			G: uint8(30 + t*130),
			B: uint8(25 + t*35),
			A: 255,
		}
	}
	t = -t
	return color.RGBA{
		R: uint8(20 + t*40),
		G: uint8(35 + t*85),
		B: uint8(60 + t*180),
		A: 255,
	}
}

// drawGrowthCurve plots growth = bell(potential) - 0.5 over the full
// potential range, with the zero axis and the center marked.
func drawGrowthCurve(x, y, w, h int32, rec *params.Record, k *sim.Kernel) {
	rl.DrawRectangleLines(x, y, w, h, rl.DarkGray)

	midY := y + h/2
	rl.DrawLine(x, midY, x+w, midY, rl.LightGray)

	centerX := x + int32(rec.GrowthCenter*float32(w))
	rl.DrawLine(centerX, y, centerX, y+h, rl.Color{R: 200, G: 160, B: 80, A: 255})

	widthEff := float64(k.WidthEff)
	scale := float32(h-10) / 1.0 // growth spans [-0.5, 0.5]

	var prev rl.Vector2
	for i := int32(0); i <= w; i++ {
		u := float64(i) / float64(w)
		arg := (u - float64(rec.GrowthCenter)) / widthEff
		growth := float32(math.Exp(-arg*arg/2)) - 0.5

		pt := rl.Vector2{
			X: float32(x + i),
			Y: float32(midY) - growth*scale,
		}
		if i > 0 {
			rl.DrawLineV(prev, pt, rl.Color{R: 220, G: 90, B: 40, A: 255})
		}
		prev = pt
	}

	rl.DrawText("growth vs potential", x+6, y+6, 12, rl.Gray)
}

package render

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Display owns the streaming texture the rendered frame is presented
// through. The internal buffer renders at a reduced resolution and the
// GPU scales it to the window.
type Display struct {
	tex    rl.Texture2D
	width  int
	height int
}

// NewDisplay allocates the streaming texture at the renderer's internal
// resolution. Requires an open window.
func NewDisplay(width, height int) *Display {
	img := rl.GenImageColor(width, height, rl.Black)
	tex := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	rl.SetTextureFilter(tex, rl.FilterBilinear)

	return &Display{tex: tex, width: width, height: height}
}

// Present uploads the pixel buffer and draws it scaled to the window.
func (d *Display) Present(pix []color.RGBA, screenW, screenH int) {
	rl.UpdateTexture(d.tex, pix)

	src := rl.NewRectangle(0, 0, float32(d.width), float32(d.height))
	dst := rl.NewRectangle(0, 0, float32(screenW), float32(screenH))
	rl.DrawTexturePro(d.tex, src, dst, rl.NewVector2(0, 0), 0, rl.White)
}

// Unload releases the texture.
func (d *Display) Unload() {
	rl.UnloadTexture(d.tex)
}

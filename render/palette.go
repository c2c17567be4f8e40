package render

import "image/color"

// Palette identifiers matching the paletteMode parameter.
const (
	PaletteNebula = 0
	PaletteEmber  = 1
	PaletteMono   = 2
	PaletteCount  = 3
)

// PaletteName returns a display name for a palette mode.
func PaletteName(mode int) string {
	switch mode {
	case PaletteEmber:
		return "ember"
	case PaletteMono:
		return "mono"
	default:
		return "nebula"
	}
}

// shade maps a contrast-adjusted intensity in [0, 1] to a display
// color.
func shade(mode int, v float32) color.RGBA {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	switch mode {
	case PaletteEmber:
		return shadeEmber(v)
	case PaletteMono:
		return shadeMono(v)
	default:
		return shadeNebula(v)
	}
}

// shadeNebula is the default ramp: near-black blue through purple with
// a white sparkle lift near full energy.
func shadeNebula(v float32) color.RGBA {
	r := 10 + 150*v*v
	g := 8 + 70*v*v*v
	b := 28 + 200*v

	if v > 0.85 {
		t := (v - 0.85) / 0.15
		lift := t * t * 180
		r += lift
		g += lift
		b += lift * 0.6
	}
	return color.RGBA{channel(r), channel(g), channel(b), 255}
}

// shadeEmber is the high-contrast ramp: black through deep red and
// orange to white.
func shadeEmber(v float32) color.RGBA {
	r := 255 * clampChan(v*1.9)
	g := 255 * clampChan(v*1.4-0.35)
	b := 255 * clampChan(v*2.8-2.0)
	return color.RGBA{channel(r), channel(g), channel(b), 255}
}

// shadeMono is a plain grayscale ramp for structure inspection.
func shadeMono(v float32) color.RGBA {
	c := channel(6 + 249*v)
	return color.RGBA{c, c, c, 255}
}

func clampChan(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func channel(x float32) uint8 {
	if x <= 0 {
		return 0
	}
	if x >= 255 {
		return 255
	}
	return uint8(x)
}

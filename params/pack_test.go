package params

import (
	"math"
	"testing"

	"github.com/pthm-cable/ember/camera"
)

func TestBlockLayout(t *testing.T) {
	if BlockLen != 28 {
		t.Errorf("expected 28 scalars, got %d", BlockLen)
	}
	if BlockLen%4 != 0 {
		t.Errorf("block length %d not 16-byte aligned", BlockLen)
	}
	if IdxNoiseAmp != BlockLen-1 {
		t.Errorf("expected noise amplitude last, got index %d", IdxNoiseAmp)
	}
}

func TestPackRoundTrip(t *testing.T) {
	r := Defaults()
	r.SetByName("growthCenter", 0.31)
	r.SetByName("diffusionRate", 0.7)
	r.SetByName("neighborMode", 26)
	r.SetByName("paletteMode", 2)
	r.SetByName("bandMask", 9)
	r.GlobalAverage = 0.123

	cam := camera.New()
	cam.SetRotation(48, -33)
	cam.AdjustDistance(1.5)
	cam.SetPanKey(camera.PanForward, true)
	cam.IntegratePan(0.5)

	in := PackInputs{SimTime: 12.5, WidthScale: 1.75, GridSize: 96, FrameSeed: 0xABCDEF}

	b := Pack(&r, cam, in)
	r2, cam2, in2 := Unpack(&b)

	// Everything except the two angles must survive bit-exactly.
	if r2 != r {
		t.Errorf("record changed by round trip:\n  packed:   %+v\n  unpacked: %+v", r, r2)
	}
	if in2 != in {
		t.Errorf("inputs changed by round trip: %+v vs %+v", in, in2)
	}
	if cam2.Distance != cam.Distance || cam2.PanX != cam.PanX || cam2.PanY != cam.PanY {
		t.Errorf("camera position changed: %+v vs %+v", cam, cam2)
	}
	if math.Abs(float64(cam2.Yaw-cam.Yaw)) > 1e-4 {
		t.Errorf("yaw drifted: %v vs %v", cam.Yaw, cam2.Yaw)
	}
	if math.Abs(float64(cam2.Pitch-cam.Pitch)) > 1e-4 {
		t.Errorf("pitch drifted: %v vs %v", cam.Pitch, cam2.Pitch)
	}
}

func TestDiffusionScaleExact(t *testing.T) {
	rates := []float64{0.001, 0.35, 0.5, 0.7, 1.0}
	modes := []int{6, 18, 26}

	for _, mode := range modes {
		for _, rate := range rates {
			r := Defaults()
			r.SetByName("neighborMode", float64(mode))
			r.SetByName("diffusionRate", rate)

			b := Pack(&r, camera.New(), PackInputs{WidthScale: 1, GridSize: 64})
			if b[IdxDiffusionScaled] != r.DiffusionRate*CFLScale(mode) {
				t.Errorf("mode %d rate %v: wrong packed diffusion %v", mode, rate, b[IdxDiffusionScaled])
			}

			r2, _, _ := Unpack(&b)
			if r2.DiffusionRate != r.DiffusionRate {
				t.Errorf("mode %d rate %v: diffusion rate drifted %v -> %v",
					mode, rate, r.DiffusionRate, r2.DiffusionRate)
			}
		}
	}
}

func TestCFLScale(t *testing.T) {
	testCases := []struct {
		mode     int
		expected float32
	}{
		{6, 0.125},
		{18, 0.0625},
		{26, 0.03125},
	}

	for _, tc := range testCases {
		if got := CFLScale(tc.mode); got != tc.expected {
			t.Errorf("mode %d: expected %v, got %v", tc.mode, tc.expected, got)
		}
	}
}

func TestPaletteBandsFold(t *testing.T) {
	testCases := []struct {
		mode, mask int
		folded     float32
	}{
		{0, 15, 15},
		{0, 0, 0},
		{1, 0, 16},
		{1, 15, 31},
		{2, 9, 41},
	}

	for _, tc := range testCases {
		r := Defaults()
		r.PaletteMode = tc.mode
		r.BandMask = tc.mask

		b := Pack(&r, camera.New(), PackInputs{WidthScale: 1, GridSize: 64})
		if b[IdxPaletteBands] != tc.folded {
			t.Errorf("mode %d mask %d: expected folded %v, got %v", tc.mode, tc.mask, tc.folded, b[IdxPaletteBands])
		}

		gotMode, gotMask := DecodePaletteBands(b[IdxPaletteBands])
		if gotMode != tc.mode || gotMask != tc.mask {
			t.Errorf("decode %v: expected (%d, %d), got (%d, %d)", tc.folded, tc.mode, tc.mask, gotMode, gotMask)
		}
	}
}

func TestFrameSeedMasked(t *testing.T) {
	b := Pack(&Record{NeighborMode: 18}, camera.New(), PackInputs{FrameSeed: 0xFFFFFFFF})
	_, _, in := Unpack(&b)
	if in.FrameSeed != 0xFFFFFF {
		t.Errorf("expected seed masked to 24 bits, got %#x", in.FrameSeed)
	}
}

func TestWidthScalePassesThrough(t *testing.T) {
	r := Defaults()
	r.GrowthWidthNorm = 0

	b := Pack(&r, camera.New(), PackInputs{WidthScale: 1, GridSize: 64})
	if b[IdxWidthScale] != 1 {
		t.Errorf("expected width scale 1, got %v", b[IdxWidthScale])
	}
	if b[IdxGrowthWidth]*b[IdxWidthScale] != r.GrowthWidth {
		t.Errorf("expected effective width %v, got %v", r.GrowthWidth, b[IdxGrowthWidth]*b[IdxWidthScale])
	}
}

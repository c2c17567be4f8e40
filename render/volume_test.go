package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/ember/camera"
	"github.com/pthm-cable/ember/params"
	"github.com/pthm-cable/ember/sim"
)

func defaultBlock(gridSize int) params.Block {
	r := params.Defaults()
	return params.Pack(&r, camera.New(), params.PackInputs{
		WidthScale: 1,
		GridSize:   gridSize,
	})
}

func TestSlabIntersect(t *testing.T) {
	testCases := []struct {
		name string
		o, d mgl32.Vec3
		hit  bool
	}{
		{"through center", mgl32.Vec3{0.5, 0.5, -2}, mgl32.Vec3{0, 0, 1}, true},
		{"pointing away", mgl32.Vec3{0.5, 0.5, -2}, mgl32.Vec3{0, 0, -1}, true},
		{"parallel inside slab", mgl32.Vec3{0.5, 0.5, -2}, mgl32.Vec3{1, 0, 0}, false},
		{"parallel outside slab", mgl32.Vec3{0.5, 2, 0.5}, mgl32.Vec3{1, 0, 0}, false},
		{"grazing corner region", mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}, true},
		{"offset miss", mgl32.Vec3{3, 0.5, -2}, mgl32.Vec3{0, 0, 1}, false},
	}

	for _, tc := range testCases {
		tMin, tMax, hit := slabIntersect(tc.o, tc.d)
		if hit != tc.hit {
			t.Errorf("%s: expected hit=%v, got %v", tc.name, tc.hit, hit)
			continue
		}
		if hit && tMax < tMin {
			t.Errorf("%s: inverted interval [%v, %v]", tc.name, tMin, tMax)
		}
	}
}

func TestMarchUniformField(t *testing.T) {
	f := sim.NewFieldBuffer(16)
	f.Fill(0.5)

	maxE, hit := marchRay(f, mgl32.Vec3{0.5, 0.5, -2}, mgl32.Vec3{0, 0, 1}, 96, 15)
	if !hit {
		t.Fatal("expected ray to hit the cube")
	}
	if maxE != 0.5 {
		t.Errorf("expected exactly 0.5 from a uniform field, got %v", maxE)
	}
}

func TestMarchMiss(t *testing.T) {
	f := sim.NewFieldBuffer(8)
	f.Fill(1)

	if _, hit := marchRay(f, mgl32.Vec3{5, 5, 5}, mgl32.Vec3{0, 0, 1}, 64, 15); hit {
		t.Error("expected ray to miss the cube")
	}
}

func TestMarchBehindRayClipped(t *testing.T) {
	// Eye inside the cube: only the forward half contributes.
	f := sim.NewFieldBuffer(8)
	f.Fill(0.25)

	maxE, hit := marchRay(f, mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0, 0, 1}, 64, 15)
	if !hit {
		t.Fatal("expected hit from inside the cube")
	}
	if maxE != 0.25 {
		t.Errorf("expected 0.25, got %v", maxE)
	}
}

func TestBandMaskHidesEnergy(t *testing.T) {
	f := sim.NewFieldBuffer(16)
	f.Fill(0.5)

	o := mgl32.Vec3{0.5, 0.5, -2}
	d := mgl32.Vec3{0, 0, 1}

	// 0.5 sits in band 2; masking that band hides everything while the
	// ray still counts as a hit.
	maxE, hit := marchRay(f, o, d, 96, 15&^(1<<2))
	if !hit {
		t.Fatal("expected geometric hit")
	}
	if maxE != 0 {
		t.Errorf("expected masked energy 0, got %v", maxE)
	}

	if maxE, _ := marchRay(f, o, d, 96, 1<<2); maxE != 0.5 {
		t.Errorf("expected band 2 alone to pass 0.5, got %v", maxE)
	}
}

func TestBandOfFullEnergyClamps(t *testing.T) {
	f := sim.NewFieldBuffer(8)
	f.Fill(1)

	// Energy 1.0 would index band 4; it must clamp into band 3.
	maxE, hit := marchRay(f, mgl32.Vec3{0.5, 0.5, -2}, mgl32.Vec3{0, 0, 1}, 64, 1<<3)
	if !hit || maxE != 1 {
		t.Errorf("expected full energy in band 3, got %v (hit=%v)", maxE, hit)
	}
}

func TestViewBasisOrthonormal(t *testing.T) {
	b := defaultBlock(64)
	v := newView(&b)

	vectors := []mgl32.Vec3{v.forward, v.right, v.up}
	for i, vec := range vectors {
		if math.Abs(float64(vec.Len()-1)) > 1e-5 {
			t.Errorf("basis vector %d not unit length: %v", i, vec.Len())
		}
	}
	if dot := v.forward.Dot(v.right); math.Abs(float64(dot)) > 1e-5 {
		t.Errorf("forward and right not orthogonal: %v", dot)
	}
	if dot := v.forward.Dot(v.up); math.Abs(float64(dot)) > 1e-5 {
		t.Errorf("forward and up not orthogonal: %v", dot)
	}

	center := mgl32.Vec3{0.5, 0.5, 0.5}
	if d := v.eye.Sub(center).Len(); math.Abs(float64(d-camera.DefaultDistance)) > 1e-5 {
		t.Errorf("expected eye at distance %v, got %v", camera.DefaultDistance, d)
	}
}

func TestViewLevelOrbit(t *testing.T) {
	// Yaw 0, pitch 0: camera south of center looking along +Y, up +Z.
	r := params.Defaults()
	cam := camera.New()
	cam.SetRotation(0, 0)
	b := params.Pack(&r, cam, params.PackInputs{WidthScale: 1, GridSize: 64})

	v := newView(&b)
	if math.Abs(float64(v.forward[0])) > 1e-6 || math.Abs(float64(v.forward[1]-1)) > 1e-6 {
		t.Errorf("expected forward +Y, got %v", v.forward)
	}
	if math.Abs(float64(v.up[2]-1)) > 1e-6 {
		t.Errorf("expected up +Z, got %v", v.up)
	}
	if math.Abs(float64(v.eye[1]-(0.5-camera.DefaultDistance))) > 1e-5 {
		t.Errorf("expected eye behind center on -Y, got %v", v.eye)
	}
}

func TestFrameUniformField(t *testing.T) {
	pool := sim.NewPool(1)
	defer pool.Stop()

	f := sim.NewFieldBuffer(16)
	f.Fill(0.5)

	rend := New(64, 64, 60, pool)
	b := defaultBlock(16)
	pix := rend.Frame(f, &b)

	if len(pix) != 64*64 {
		t.Fatalf("expected %d pixels, got %d", 64*64, len(pix))
	}

	r := params.Defaults()
	want := shade(PaletteNebula, float32(math.Pow(0.5, float64(r.Contrast))))
	center := pix[32*64+32]
	if center != want {
		t.Errorf("expected center pixel %v, got %v", want, center)
	}

	// The corner ray diverges far enough from the view axis to miss the
	// cube at the default orbit distance.
	corner := pix[0]
	if bg := shade(PaletteNebula, 0); corner != bg {
		t.Errorf("expected corner pixel %v to be background, got %v", bg, corner)
	}
}

func TestFrameBufferReused(t *testing.T) {
	pool := sim.NewPool(1)
	defer pool.Stop()

	f := sim.NewFieldBuffer(8)
	rend := New(32, 32, 60, pool)
	b := defaultBlock(8)

	p1 := rend.Frame(f, &b)
	p2 := rend.Frame(f, &b)
	if &p1[0] != &p2[0] {
		t.Error("expected the pixel buffer to be reused between frames")
	}
}

func TestPalettes(t *testing.T) {
	for mode := 0; mode < PaletteCount; mode++ {
		lo := shade(mode, 0.1)
		hi := shade(mode, 0.9)
		if lo == hi {
			t.Errorf("palette %d: no contrast between 0.1 and 0.9", mode)
		}
		if lo.A != 255 || hi.A != 255 {
			t.Errorf("palette %d: expected opaque output", mode)
		}
	}

	m := shade(PaletteMono, 0.5)
	if m.R != m.G || m.G != m.B {
		t.Errorf("mono palette not gray: %v", m)
	}

	neb := shade(PaletteNebula, 1)
	if neb.R < 150 || neb.G < 150 {
		t.Errorf("expected sparkle lift at full energy, got %v", neb)
	}

	if shade(PaletteEmber, 0) != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("ember palette should start black, got %v", shade(PaletteEmber, 0))
	}
}

package sim

import (
	"math"
	"testing"

	"github.com/pthm-cable/ember/params"
)

func TestBuildKernelDefaults(t *testing.T) {
	r := params.Defaults()
	k := BuildKernel(&r)

	if len(k.Offsets) == 0 {
		t.Fatal("expected non-empty kernel")
	}
	if k.AbsSum <= 0 {
		t.Errorf("expected positive AbsSum, got %v", k.AbsSum)
	}
	if k.Neff <= 0 {
		t.Errorf("expected positive Neff, got %v", k.Neff)
	}

	var hasCenter, hasNegativeRing bool
	for _, o := range k.Offsets {
		if o.DX == 0 && o.DY == 0 && o.DZ == 0 {
			hasCenter = true
			if o.W != r.InnerStrength {
				t.Errorf("expected center weight %v, got %v", r.InnerStrength, o.W)
			}
		}
		if o.W < 0 {
			hasNegativeRing = true
		}
		d := math.Sqrt(float64(o.DX*o.DX + o.DY*o.DY + o.DZ*o.DZ))
		if d >= float64(r.OuterRadius) {
			t.Errorf("offset (%d,%d,%d) outside outer radius", o.DX, o.DY, o.DZ)
		}
	}
	if !hasCenter {
		t.Error("expected a center tap")
	}
	if !hasNegativeRing {
		t.Error("expected negative ring taps from the inhibitory outer strength")
	}
}

func TestKernelSymmetry(t *testing.T) {
	r := params.Defaults()
	k := BuildKernel(&r)

	weights := make(map[[3]int32]float32, len(k.Offsets))
	for _, o := range k.Offsets {
		weights[[3]int32{o.DX, o.DY, o.DZ}] = o.W
	}
	for _, o := range k.Offsets {
		mirror, ok := weights[[3]int32{-o.DX, -o.DY, -o.DZ}]
		if !ok {
			t.Fatalf("offset (%d,%d,%d) has no mirror", o.DX, o.DY, o.DZ)
		}
		if mirror != o.W {
			t.Errorf("asymmetric weights at (%d,%d,%d): %v vs %v", o.DX, o.DY, o.DZ, o.W, mirror)
		}
	}
}

func TestWidthEffExactWhenNormZero(t *testing.T) {
	r := params.Defaults()
	r.GrowthWidthNorm = 0
	k := BuildKernel(&r)

	if k.WidthScale != 1 {
		t.Errorf("expected width scale exactly 1, got %v", k.WidthScale)
	}
	if k.WidthEff != r.GrowthWidth {
		t.Errorf("expected width %v untouched, got %v", r.GrowthWidth, k.WidthEff)
	}
}

func TestWidthScaleStaysClamped(t *testing.T) {
	// A minimal kernel has tiny Neff and would blow the width up without
	// the clamp; a huge one would shrink it toward zero.
	small := params.Defaults()
	small.InnerRadius = 1
	small.OuterRadius = 2
	small.GrowthWidthNorm = 1

	large := params.Defaults()
	large.OuterRadius = 12
	large.GrowthWidthNorm = 1

	for _, r := range []params.Record{small, large} {
		k := BuildKernel(&r)
		if k.WidthScale < 0.25 || k.WidthScale > 4 {
			t.Errorf("width scale %v outside [0.25, 4]", k.WidthScale)
		}
		if k.WidthEff <= 0 {
			t.Errorf("non-positive effective width %v", k.WidthEff)
		}
	}
}

func TestDegenerateRadiiSafe(t *testing.T) {
	// No room for the ring: outerRadius inside innerRadius+1.
	r := params.Defaults()
	r.InnerRadius = 2
	r.OuterRadius = 2.5
	k := BuildKernel(&r)

	if len(k.Offsets) == 0 {
		t.Fatal("expected inner taps to survive a missing ring")
	}
	for _, o := range k.Offsets {
		if o.W < 0 {
			t.Errorf("unexpected negative tap (%d,%d,%d)=%v without a ring", o.DX, o.DY, o.DZ, o.W)
		}
	}
	if k.Neff <= 0 {
		t.Errorf("expected positive Neff, got %v", k.Neff)
	}

	// Zero outer radius empties the kernel entirely; potentials read 0.
	r.OuterRadius = 0
	k = BuildKernel(&r)
	if len(k.Offsets) != 0 || k.AbsSum != 0 {
		t.Fatalf("expected empty kernel, got %d taps", len(k.Offsets))
	}

	f := NewFieldBuffer(8)
	f.Fill(1)
	if got := k.Potential(f, 4, 4, 4); got != 0 {
		t.Errorf("expected zero potential from empty kernel, got %v", got)
	}
}

func TestPotentialDeltaField(t *testing.T) {
	r := params.Defaults()
	k := BuildKernel(&r)

	f := NewFieldBuffer(16)
	f.Set(8, 8, 8, 1)

	weights := make(map[[3]int32]float32, len(k.Offsets))
	for _, o := range k.Offsets {
		weights[[3]int32{o.DX, o.DY, o.DZ}] = o.W
	}

	testCases := [][3]int32{
		{0, 0, 0},  // center tap
		{3, 0, 0},  // ring tap
		{-1, 1, 0}, // inner tap
	}
	for _, off := range testCases {
		w, ok := weights[off]
		if !ok {
			t.Fatalf("expected a tap at %v", off)
		}
		// The only energy is at (8,8,8), so the potential at an offset
		// cell is the mirrored tap weight over AbsSum.
		got := k.Potential(f, 8+int(off[0]), 8+int(off[1]), 8+int(off[2]))
		want := w / k.AbsSum
		if math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("potential at offset %v: expected %v, got %v", off, want, got)
		}
	}
}

func TestPotentialWrapsAroundTorus(t *testing.T) {
	r := params.Defaults()
	r.OuterRadius = 6
	k := BuildKernel(&r)

	// The kernel reach exceeds the grid radius here, so taps must wrap
	// instead of reading out of bounds.
	f := NewFieldBuffer(8)
	f.Fill(0.5)

	a := k.Potential(f, 0, 0, 0)
	b := k.Potential(f, 7, 3, 5)
	if a != b {
		t.Errorf("uniform field potentials differ under wrapping: %v vs %v", a, b)
	}
	if math.IsNaN(float64(a)) {
		t.Error("potential is NaN")
	}
}

package sim

import (
	"math"

	"github.com/pthm-cable/ember/params"
)

// targetNeff is the effective sample count the growth width is
// normalized against, so tuned growth curves survive kernel reshaping.
const targetNeff = 64

const (
	minWidthScale = 0.25
	maxWidthScale = 4.0
)

// Offset is one kernel tap: a cell offset and its weight.
type Offset struct {
	DX, DY, DZ int32
	W          float32
}

// Kernel is the precomputed neighbor weight table plus the derived
// growth-width correction. Rebuilt once per parameter change, never per
// cell.
type Kernel struct {
	Offsets []Offset

	// AbsSum normalizes the potential; zero means the kernel is empty
	// and every potential reads as zero.
	AbsSum float32

	// Neff is the effective sample count (sum|w|)^2 / sum(w^2).
	Neff float32

	// WidthScale is scale^growthWidthNorm, exactly 1 when the norm is 0.
	WidthScale float32

	// WidthEff is the corrected growth width used by the bell curve.
	WidthEff float32
}

// BuildKernel constructs the weight table for the given parameters.
// Weights are accumulated in float64 and stored as float32. Degenerate
// radii produce a smaller kernel, never an invalid one: the outer ring
// simply vanishes when outerRadius leaves no room for it.
func BuildKernel(r *params.Record) *Kernel {
	inner := float64(r.InnerRadius)
	if inner < 1 {
		inner = 1
	}
	outer := float64(r.OuterRadius)
	innerS := float64(r.InnerStrength)
	outerS := float64(r.OuterStrength)

	ringStart := inner + 1
	ringSpan := outer - ringStart

	reach := int(math.Ceil(outer))
	if reach < 1 {
		reach = 1
	}

	k := &Kernel{}
	var absSum, sqSum float64
	for dz := -reach; dz <= reach; dz++ {
		for dy := -reach; dy <= reach; dy++ {
			for dx := -reach; dx <= reach; dx++ {
				d := math.Sqrt(float64(dx*dx + dy*dy + dz*dz))
				if d >= outer {
					continue
				}

				var w float64
				switch {
				case d < inner:
					t := 1 - d/inner
					w = innerS * t * t
				case d >= ringStart && ringSpan > 0:
					t := (d - ringStart) / ringSpan
					w = outerS * math.Exp(-2*t*t)
				default:
					continue
				}
				if w == 0 {
					continue
				}

				k.Offsets = append(k.Offsets, Offset{
					DX: int32(dx), DY: int32(dy), DZ: int32(dz),
					W: float32(w),
				})
				absSum += math.Abs(w)
				sqSum += w * w
			}
		}
	}

	k.AbsSum = float32(absSum)
	if sqSum > 0 {
		k.Neff = float32(absSum * absSum / sqSum)
	}

	scale := math.Sqrt(targetNeff / math.Max(1, float64(k.Neff)))
	if scale < minWidthScale {
		scale = minWidthScale
	}
	if scale > maxWidthScale {
		scale = maxWidthScale
	}

	if r.GrowthWidthNorm == 0 {
		k.WidthScale = 1
		k.WidthEff = r.GrowthWidth
	} else {
		k.WidthScale = float32(math.Pow(scale, float64(r.GrowthWidthNorm)))
		k.WidthEff = r.GrowthWidth * k.WidthScale
	}
	if k.WidthEff < 1e-4 {
		k.WidthEff = 1e-4
	}

	return k
}

// Potential computes the weighted neighborhood potential at a cell of
// the active grid.
func (k *Kernel) Potential(f *FieldBuffer, x, y, z int) float32 {
	return potentialAt(k, f.Active(), f.Size(), x, y, z)
}

func potentialAt(k *Kernel, g []float32, s, x, y, z int) float32 {
	if k.AbsSum == 0 {
		return 0
	}
	var sum float32
	for _, o := range k.Offsets {
		xx := wrapIndex(x+int(o.DX), s)
		yy := wrapIndex(y+int(o.DY), s)
		zz := wrapIndex(z+int(o.DZ), s)
		sum += g[(zz*s+yy)*s+xx] * o.W
	}
	return sum / k.AbsSum
}

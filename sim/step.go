package sim

import "github.com/pthm-cable/ember/params"

// DT is the fixed integration step in seconds of simulation time.
// Sub-steps always advance simTime by exactly this much regardless of
// the wall-clock frame rate.
const DT = float32(1.0 / 60.0)

// stencilTap is one diffusion neighbor with its distance weight.
type stencilTap struct {
	dx, dy, dz int32
	w          float32
}

const (
	edgeWeight   = float32(0.7071067811865476) // 1/sqrt(2)
	cornerWeight = float32(0.5773502691896258) // 1/sqrt(3)
)

var (
	stencil6  []stencilTap
	stencil18 []stencilTap
	stencil26 []stencilTap
)

func init() {
	for dz := int32(-1); dz <= 1; dz++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dx := int32(-1); dx <= 1; dx++ {
				switch dx*dx + dy*dy + dz*dz {
				case 1:
					t := stencilTap{dx, dy, dz, 1}
					stencil6 = append(stencil6, t)
					stencil18 = append(stencil18, t)
					stencil26 = append(stencil26, t)
				case 2:
					t := stencilTap{dx, dy, dz, edgeWeight}
					stencil18 = append(stencil18, t)
					stencil26 = append(stencil26, t)
				case 3:
					stencil26 = append(stencil26, stencilTap{dx, dy, dz, cornerWeight})
				}
			}
		}
	}
}

func stencilFor(mode int) []stencilTap {
	switch mode {
	case 6:
		return stencil6
	case 26:
		return stencil26
	default:
		return stencil18
	}
}

// Stepper runs the per-cell update rule on the worker pool.
type Stepper struct {
	pool *Pool
}

func NewStepper(pool *Pool) *Stepper {
	return &Stepper{pool: pool}
}

// Step advances the field by one sub-step: it reads the active grid and
// writes the full inactive grid. The caller swaps after the pass.
func (st *Stepper) Step(f *FieldBuffer, k *Kernel, b *params.Block) {
	src := f.Active()
	dst := f.Inactive()
	size := f.Size()

	st.pool.Run(f.Cells(), func(start, end int) {
		stepRange(src, dst, size, start, end, k, b)
	})
}

// stepRange applies the update rule to the flat cell range [start, end).
// Each cell: growth bell on the kernel potential, fission instability
// above the threshold, quadratic metabolism, CFL-scaled diffusion, and
// the per-frame noise floor, then clamp to [0, 1].
func stepRange(src, dst []float32, size, start, end int, k *Kernel, b *params.Block) {
	growthCenter := b[params.IdxGrowthCenter]
	growthRate := b[params.IdxGrowthRate]
	decayRate := b[params.IdxDecayRate]
	diffScaled := b[params.IdxDiffusionScaled]
	fissionT := b[params.IdxFissionThreshold]
	instability := b[params.IdxInstability]
	suppression := b[params.IdxSuppression]
	globalAvg := b[params.IdxGlobalAverage]
	simTime := b[params.IdxSimTime]
	seed := uint32(b[params.IdxFrameSeed])
	noiseAmp := b[params.IdxNoiseAmp]

	widthEff := k.WidthEff
	taps := stencilFor(int(b[params.IdxNeighborMode]))
	invRange := float32(0)
	if fissionT < 1 {
		invRange = 1 / (1 - fissionT)
	}

	s2 := size * size
	for i := start; i < end; i++ {
		x := i % size
		y := (i / size) % size
		z := i / s2

		e := src[i]

		potential := potentialAt(k, src, size, x, y, z)

		arg := (potential - growthCenter) / widthEff
		bell := fastExp(-arg * arg / 2)

		var excess float32
		if e > fissionT && invRange > 0 {
			excess = (e - fissionT) * invRange
			bell -= excess * instability
		}

		growth := bell - 0.5 - globalAvg*suppression
		metabolism := e * e * decayRate
		diffusion := laplacianAt(src, size, x, y, z, taps) * diffScaled

		var fissionNoise float32
		if excess > 0 {
			chaos := fastSin((float32(x+y+z) + simTime) * 0.5)
			fissionNoise = chaos * excess * 0.1
		}

		noise := (hashNoise(uint32(x), uint32(y), uint32(z), seed)*2 - 1) * noiseAmp

		dst[i] = clamp01(e + growthRate*growth - metabolism + diffusion + fissionNoise + noise)
	}
}

// laplacianAt evaluates the weighted discrete Laplacian at a cell.
// Stencil offsets are at most one cell, so a single wrap correction is
// enough.
func laplacianAt(g []float32, size, x, y, z int, taps []stencilTap) float32 {
	c := g[(z*size+y)*size+x]
	var sum float32
	for _, t := range taps {
		xx := x + int(t.dx)
		if xx < 0 {
			xx += size
		} else if xx >= size {
			xx -= size
		}
		yy := y + int(t.dy)
		if yy < 0 {
			yy += size
		} else if yy >= size {
			yy -= size
		}
		zz := z + int(t.dz)
		if zz < 0 {
			zz += size
		} else if zz >= size {
			zz -= size
		}
		sum += t.w * (g[(zz*size+yy)*size+xx] - c)
	}
	return sum
}

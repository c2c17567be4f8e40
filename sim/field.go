// Package sim owns the energy field, the interaction kernel, the CPU
// stepper, and the asynchronous mean reduction.
package sim

import "math/rand"

// FieldBuffer holds the two physical grids of the energy field. One grid
// is active (the read side) and the other is the write target of the
// in-flight kernel pass; Swap flips them once the pass completes. Slices
// returned by Active and Inactive must not be retained across a Swap.
type FieldBuffer struct {
	size   int
	cells  int
	grids  [2][]float32
	active int
	gen    uint64
}

// NewFieldBuffer allocates both grids for a cubic field with the given
// side length.
func NewFieldBuffer(size int) *FieldBuffer {
	f := &FieldBuffer{}
	f.alloc(size)
	return f
}

func (f *FieldBuffer) alloc(size int) {
	f.size = size
	f.cells = size * size * size
	f.grids[0] = make([]float32, f.cells)
	f.grids[1] = make([]float32, f.cells)
	f.active = 0
}

// Size returns the cube side length.
func (f *FieldBuffer) Size() int { return f.size }

// Cells returns the total cell count.
func (f *FieldBuffer) Cells() int { return f.cells }

// Generation increments whenever the field is reallocated or reseeded.
// Consumers use it to discard results computed against previous contents.
func (f *FieldBuffer) Generation() uint64 { return f.gen }

// Active returns the read-side grid.
func (f *FieldBuffer) Active() []float32 { return f.grids[f.active] }

// Inactive returns the current write target.
func (f *FieldBuffer) Inactive() []float32 { return f.grids[1-f.active] }

// Swap publishes the write target as the new active grid.
func (f *FieldBuffer) Swap() { f.active = 1 - f.active }

// Index maps cell coordinates to the flat grid index.
func (f *FieldBuffer) Index(x, y, z int) int {
	return (z*f.size+y)*f.size + x
}

// At reads the active grid with toroidal wrapping on all three axes.
func (f *FieldBuffer) At(x, y, z int) float32 {
	s := f.size
	return f.grids[f.active][(wrapIndex(z, s)*s+wrapIndex(y, s))*s+wrapIndex(x, s)]
}

// Set writes one cell of the active grid. Coordinates must be in range.
func (f *FieldBuffer) Set(x, y, z int, v float32) {
	f.grids[f.active][f.Index(x, y, z)] = v
}

// Fill sets every cell of both grids to v.
func (f *FieldBuffer) Fill(v float32) {
	for g := range f.grids {
		grid := f.grids[g]
		for i := range grid {
			grid[i] = v
		}
	}
}

// Seed fills the active grid with independent uniform energy in
// [0, level] and mirrors it into the write side so no stale values
// survive a later swap. Seeding bumps the generation so in-flight
// reductions over the old contents are discarded.
func (f *FieldBuffer) Seed(rng *rand.Rand, level float32) {
	act := f.grids[f.active]
	for i := range act {
		act[i] = rng.Float32() * level
	}
	copy(f.grids[1-f.active], act)
	f.gen++
}

// Resize reallocates both grids at the new side length and bumps the
// generation. The caller is responsible for reseeding.
func (f *FieldBuffer) Resize(size int) {
	if size == f.size {
		return
	}
	f.alloc(size)
	f.gen++
}

// Mean returns the average energy of the active grid. Synchronous; the
// frame loop uses the reduction pipeline instead.
func (f *FieldBuffer) Mean() float32 {
	var sum float64
	for _, v := range f.grids[f.active] {
		sum += float64(v)
	}
	return float32(sum / float64(f.cells))
}

// Sample returns the trilinear interpolation of the active grid at a
// point in unit-cube coordinates, wrapping across all faces. Cell
// centers sit at (i + 0.5) / size.
func (f *FieldBuffer) Sample(u, v, w float32) float32 {
	s := f.size
	fs := float32(s)

	gx := u*fs - 0.5
	gy := v*fs - 0.5
	gz := w*fs - 0.5

	fx := floorf(gx)
	fy := floorf(gy)
	fz := floorf(gz)

	tx := gx - fx
	ty := gy - fy
	tz := gz - fz

	x0 := wrapIndex(int(fx), s)
	y0 := wrapIndex(int(fy), s)
	z0 := wrapIndex(int(fz), s)
	x1 := x0 + 1
	if x1 == s {
		x1 = 0
	}
	y1 := y0 + 1
	if y1 == s {
		y1 = 0
	}
	z1 := z0 + 1
	if z1 == s {
		z1 = 0
	}

	g := f.grids[f.active]
	r0 := z0 * s
	r1 := z1 * s

	c00 := lerp(g[((r0+y0)*s)+x0], g[((r0+y0)*s)+x1], tx)
	c10 := lerp(g[((r0+y1)*s)+x0], g[((r0+y1)*s)+x1], tx)
	c01 := lerp(g[((r1+y0)*s)+x0], g[((r1+y0)*s)+x1], tx)
	c11 := lerp(g[((r1+y1)*s)+x0], g[((r1+y1)*s)+x1], tx)

	c0 := lerp(c00, c10, ty)
	c1 := lerp(c01, c11, ty)
	return lerp(c0, c1, tz)
}

// lerp in the a + t*(b-a) form, so constant fields interpolate to the
// constant exactly.
func lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

func wrapIndex(i, s int) int {
	i %= s
	if i < 0 {
		i += s
	}
	return i
}

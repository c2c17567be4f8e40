// Package render turns the energy field into pixels: a CPU volume ray
// marcher over the unit cube, palette shading, and the window blit.
package render

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/ember/params"
	"github.com/pthm-cable/ember/sim"
)

// Renderer ray-marches the active grid into a reusable RGBA buffer
// using maximum-intensity projection, one ray per pixel, parallelized
// over the worker pool.
type Renderer struct {
	width    int
	height   int
	fovScale float32
	pix      []color.RGBA
	pool     *sim.Pool
}

// New creates a renderer at a fixed internal resolution. fovDegrees is
// the full vertical field of view.
func New(width, height int, fovDegrees float32, pool *sim.Pool) *Renderer {
	return &Renderer{
		width:    width,
		height:   height,
		fovScale: float32(math.Tan(float64(fovDegrees) * math.Pi / 360)),
		pix:      make([]color.RGBA, width*height),
		pool:     pool,
	}
}

// Size returns the internal render resolution.
func (r *Renderer) Size() (int, int) {
	return r.width, r.height
}

// Frame renders the field with the packed camera and display settings
// and returns the internal pixel buffer, which is reused on the next
// call.
func (r *Renderer) Frame(f *sim.FieldBuffer, b *params.Block) []color.RGBA {
	v := newView(b)

	steps := int(b[params.IdxRaySteps])
	if steps < 1 {
		steps = 64
	}
	paletteMode, bandMask := params.DecodePaletteBands(b[params.IdxPaletteBands])
	contrast := float64(b[params.IdxContrast])
	if contrast < 1 {
		contrast = 1
	}

	w, h := r.width, r.height
	aspect := float32(w) / float32(h)

	r.pool.Run(w*h, func(start, end int) {
		for i := start; i < end; i++ {
			px := i % w
			py := i / w

			u := (2*(float32(px)+0.5)/float32(w) - 1) * aspect * r.fovScale
			vy := (1 - 2*(float32(py)+0.5)/float32(h)) * r.fovScale
			dir := v.right.Mul(u).Add(v.up.Mul(vy)).Add(v.forward).Normalize()

			maxE, hit := marchRay(f, v.eye, dir, steps, bandMask)

			var val float64
			if hit && maxE > 0 {
				val = math.Pow(float64(maxE), contrast)
			}
			r.pix[i] = shade(paletteMode, float32(val))
		}
	})

	return r.pix
}

// view is the orthonormal camera basis derived from a packed block.
type view struct {
	eye     mgl32.Vec3
	forward mgl32.Vec3
	right   mgl32.Vec3
	up      mgl32.Vec3
}

// newView rebuilds the orbit basis. Yaw turns the heading in the ground
// plane, pitch tilts it, and the eye sits Distance behind the
// pan-shifted cube center along the view axis. World up is +Z.
func newView(b *params.Block) view {
	yaw := float64(b[params.IdxYawRad])
	pitch := float64(b[params.IdxPitchRad])

	sy, cy := math.Sincos(yaw)
	sp, cp := math.Sincos(pitch)

	forward := mgl32.Vec3{float32(cp * sy), float32(cp * cy), float32(sp)}
	right := mgl32.Vec3{float32(cy), float32(-sy), 0}
	up := right.Cross(forward)

	center := mgl32.Vec3{
		0.5 + b[params.IdxPanX],
		0.5 + b[params.IdxPanY],
		0.5,
	}
	eye := center.Sub(forward.Mul(b[params.IdxDistance]))

	return view{eye: eye, forward: forward, right: right, up: up}
}

// marchRay samples the field at fixed intervals across the cube and
// returns the maximum energy whose quartile band is enabled in the
// mask. hit is false when the ray misses the cube entirely.
func marchRay(f *sim.FieldBuffer, o, d mgl32.Vec3, steps, bandMask int) (float32, bool) {
	tMin, tMax, ok := slabIntersect(o, d)
	if !ok {
		return 0, false
	}
	if tMin < 0 {
		tMin = 0
	}
	if tMax <= tMin {
		return 0, false
	}

	dt := (tMax - tMin) / float32(steps)
	var maxE float32
	for i := 0; i < steps; i++ {
		t := tMin + (float32(i)+0.5)*dt
		p := o.Add(d.Mul(t))

		e := f.Sample(p[0], p[1], p[2])

		band := int(e * 4)
		if band > 3 {
			band = 3
		}
		if bandMask&(1<<band) == 0 {
			continue
		}
		if e > maxE {
			maxE = e
		}
	}
	return maxE, true
}

// slabIntersect clips a ray against the unit cube. Axis-parallel rays
// divide by zero into infinities, which the comparisons handle.
func slabIntersect(o, d mgl32.Vec3) (tMin, tMax float32, ok bool) {
	tMin = float32(math.Inf(-1))
	tMax = float32(math.Inf(1))

	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < 0 || o[i] > 1 {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / d[i]
		t0 := -o[i] * inv
		t1 := (1 - o[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
	}

	if tMax < tMin {
		return 0, 0, false
	}
	return tMin, tMax, true
}

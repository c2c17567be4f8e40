package sim

import "sync/atomic"

// reduceResult is one completed mean together with the field generation
// it was computed against.
type reduceResult struct {
	mean       float32
	generation uint64
}

// ReductionPipeline computes the mean energy of the active grid by
// repeated 2x2x2 block averaging. It is single-flight: a Trigger that
// arrives while a reduction is outstanding is dropped, not queued.
//
// Only the first halving pass reads the shared grid, and it runs inline
// inside Trigger; the remaining passes work on private scratch in a
// goroutine, so the caller may swap and mutate the field freely while
// the pyramid finishes. Poll observes completion without blocking.
type ReductionPipeline struct {
	busy atomic.Bool
	done atomic.Pointer[reduceResult]

	scratchA []float32
	scratchB []float32
}

func NewReductionPipeline() *ReductionPipeline {
	return &ReductionPipeline{}
}

// Trigger starts a reduction of the current active grid. It returns
// false when a previous reduction is still in flight.
func (r *ReductionPipeline) Trigger(f *FieldBuffer) bool {
	if !r.busy.CompareAndSwap(false, true) {
		return false
	}

	size := f.Size()
	half := halfSize(size)
	need := half * half * half
	if cap(r.scratchA) < need {
		r.scratchA = make([]float32, need)
		r.scratchB = make([]float32, need)
	}

	first := r.scratchA[:need]
	halvePass(f.Active(), size, first, half)
	gen := f.Generation()

	go func() {
		cur, curSize := first, half
		spare := r.scratchB
		for curSize > 1 {
			next := halfSize(curSize)
			out := spare[:next*next*next]
			halvePass(cur, curSize, out, next)
			cur, spare = out, cur
			curSize = next
		}
		r.done.Store(&reduceResult{mean: cur[0], generation: gen})
		r.busy.Store(false)
	}()
	return true
}

// Poll consumes the most recent completed result. ok is false when no
// new result has landed since the last call.
func (r *ReductionPipeline) Poll() (mean float32, generation uint64, ok bool) {
	res := r.done.Swap(nil)
	if res == nil {
		return 0, 0, false
	}
	return res.mean, res.generation, true
}

// Busy reports whether a reduction is in flight.
func (r *ReductionPipeline) Busy() bool {
	return r.busy.Load()
}

// Reset discards any unconsumed result. In-flight work is not
// interrupted; its eventual result carries a stale generation and the
// consumer drops it.
func (r *ReductionPipeline) Reset() {
	r.done.Store(nil)
}

func halfSize(s int) int {
	return (s + 1) / 2
}

// halvePass reduces a cubic grid of side s into one of side hs,
// averaging each 2x2x2 block. Blocks that stick out past an odd edge
// average only their in-bounds cells, so every level keeps a true mean
// of the cells it covers.
func halvePass(src []float32, s int, dst []float32, hs int) {
	for z := 0; z < hs; z++ {
		z0 := z * 2
		for y := 0; y < hs; y++ {
			y0 := y * 2
			for x := 0; x < hs; x++ {
				x0 := x * 2

				var sum float32
				var count int
				for dz := 0; dz < 2 && z0+dz < s; dz++ {
					for dy := 0; dy < 2 && y0+dy < s; dy++ {
						base := ((z0+dz)*s + y0 + dy) * s
						for dx := 0; dx < 2 && x0+dx < s; dx++ {
							sum += src[base+x0+dx]
							count++
						}
					}
				}
				dst[(z*hs+y)*hs+x] = sum / float32(count)
			}
		}
	}
}

package sim

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func waitForResult(t *testing.T, r *ReductionPipeline) (float32, uint64) {
	t.Helper()
	for i := 0; i < 2000; i++ {
		if mean, gen, ok := r.Poll(); ok {
			return mean, gen
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("reduction did not complete")
	return 0, 0
}

func waitIdle(t *testing.T, r *ReductionPipeline) {
	t.Helper()
	for i := 0; i < 2000; i++ {
		if !r.Busy() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("reduction stayed busy")
}

func TestHalvePass(t *testing.T) {
	// 4x4x4 block of distinct values: every destination cell averages a
	// full 2x2x2 block.
	src := make([]float32, 64)
	for i := range src {
		src[i] = float32(i)
	}
	dst := make([]float32, 8)
	halvePass(src, 4, dst, 2)

	// Cell (0,0,0) covers indices with x,y,z in {0,1}.
	want := float32(0+1+4+5+16+17+20+21) / 8
	if dst[0] != want {
		t.Errorf("expected %v, got %v", want, dst[0])
	}
	// Cell (1,1,1) covers the far corner block.
	want = float32(42+43+46+47+58+59+62+63) / 8
	if dst[7] != want {
		t.Errorf("expected %v, got %v", want, dst[7])
	}
}

func TestHalvePassPartialBlocks(t *testing.T) {
	// Odd side: edge blocks cover fewer cells and must average only what
	// they cover.
	src := make([]float32, 27)
	for i := range src {
		src[i] = float32(i)
	}
	dst := make([]float32, 8)
	halvePass(src, 3, dst, 2)

	// Corner block (1,1,1) covers the single cell (2,2,2) = index 26.
	if dst[7] != 26 {
		t.Errorf("expected single-cell average 26, got %v", dst[7])
	}
	// Edge block (1,0,0) covers x=2, y in {0,1}, z in {0,1}.
	want := float32(2+5+11+14) / 4
	if dst[1] != want {
		t.Errorf("expected %v, got %v", want, dst[1])
	}
}

func TestReduceUniformFieldExact(t *testing.T) {
	// 0.375 accumulates exactly at every level, including the partial
	// blocks of the odd 3-wide stage, so the pyramid must return it
	// untouched.
	f := NewFieldBuffer(12)
	f.Fill(0.375)

	r := NewReductionPipeline()
	if !r.Trigger(f) {
		t.Fatal("trigger refused on idle pipeline")
	}

	mean, gen := waitForResult(t, r)
	if mean != 0.375 {
		t.Errorf("expected exactly 0.375, got %v", mean)
	}
	if gen != f.Generation() {
		t.Errorf("expected generation %d, got %d", f.Generation(), gen)
	}
}

func TestReduceMatchesDirectMean(t *testing.T) {
	for _, size := range []int{8, 16, 32} {
		f := NewFieldBuffer(size)
		f.Seed(rand.New(rand.NewSource(int64(size))), 1)

		r := NewReductionPipeline()
		r.Trigger(f)
		mean, _ := waitForResult(t, r)

		want := f.Mean()
		if math.Abs(float64(mean-want)) > 1e-5 {
			t.Errorf("size %d: expected mean %v, got %v", size, want, mean)
		}
	}
}

func TestReduceOddSizeStaysClose(t *testing.T) {
	// Partial blocks weight edge cells slightly differently, so an odd
	// pyramid is only approximately the direct mean.
	f := NewFieldBuffer(12)
	f.Seed(rand.New(rand.NewSource(5)), 1)

	r := NewReductionPipeline()
	r.Trigger(f)
	mean, _ := waitForResult(t, r)

	want := f.Mean()
	if math.Abs(float64(mean-want)) > 0.05 {
		t.Errorf("expected mean near %v, got %v", want, mean)
	}
}

func TestReduceSingleFlight(t *testing.T) {
	f := NewFieldBuffer(8)
	f.Fill(0.5)

	r := NewReductionPipeline()
	r.busy.Store(true)
	if r.Trigger(f) {
		t.Error("expected trigger to drop while busy")
	}
	r.busy.Store(false)

	if !r.Trigger(f) {
		t.Error("expected trigger to run once idle")
	}
	if mean, _ := waitForResult(t, r); mean != 0.5 {
		t.Errorf("expected 0.5, got %v", mean)
	}
}

func TestPollConsumesResult(t *testing.T) {
	f := NewFieldBuffer(8)
	f.Fill(0.25)

	r := NewReductionPipeline()
	r.Trigger(f)
	waitForResult(t, r)

	if _, _, ok := r.Poll(); ok {
		t.Error("expected second poll to find nothing")
	}
}

func TestResetDiscardsResult(t *testing.T) {
	f := NewFieldBuffer(8)
	f.Fill(0.25)

	r := NewReductionPipeline()
	r.Trigger(f)
	waitIdle(t, r)

	r.Reset()
	if _, _, ok := r.Poll(); ok {
		t.Error("expected reset to discard the pending result")
	}

	// The pipeline stays usable after a reset.
	if !r.Trigger(f) {
		t.Fatal("trigger refused after reset")
	}
	if mean, _ := waitForResult(t, r); mean != 0.25 {
		t.Errorf("expected 0.25, got %v", mean)
	}
}

func TestReduceGenerationTracksResize(t *testing.T) {
	f := NewFieldBuffer(8)
	f.Fill(0.5)

	r := NewReductionPipeline()
	r.Trigger(f)
	_, gen := waitForResult(t, r)
	if gen != 0 {
		t.Errorf("expected generation 0, got %d", gen)
	}

	f.Resize(16)
	f.Fill(0.75)
	r.Trigger(f)
	mean, gen := waitForResult(t, r)
	if gen != 1 {
		t.Errorf("expected generation 1 after resize, got %d", gen)
	}
	if mean != 0.75 {
		t.Errorf("expected 0.75, got %v", mean)
	}
}

package sim

import (
	"math"
	"testing"
)

func TestFastSinAccuracy(t *testing.T) {
	// Large args exercise the range reduction used by the fission chaos
	// term, whose argument grows with coordinates and sim time.
	args := []float32{0, 0.5, 1, -1, 1.5707964, -1.5707964, 3.1415927, 9.42, 100.5, 400.25, -250.75}

	for _, x := range args {
		got := float64(fastSin(x))
		want := math.Sin(float64(x))
		if math.Abs(got-want) > 0.002 {
			t.Errorf("fastSin(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestFastSinZeroExact(t *testing.T) {
	if v := fastSin(0); v != 0 {
		t.Errorf("fastSin(0) = %v, want exactly 0", v)
	}
}

func TestFastExpAccuracy(t *testing.T) {
	// The growth bell evaluates fastExp on non-positive arguments only.
	// The Pade form is tight near zero and drifts toward the saturation
	// edge, where the bell is visually dead anyway.
	for x := float32(-1); x <= 0; x += 0.05 {
		got := float64(fastExp(x))
		want := math.Exp(float64(x))
		if math.Abs(got-want) > 0.002 {
			t.Errorf("fastExp(%v) = %v, want %v", x, got, want)
		}
	}
	for x := float32(-4); x <= 0; x += 0.25 {
		got := float64(fastExp(x))
		want := math.Exp(float64(x))
		if math.Abs(got-want) > 0.06 {
			t.Errorf("fastExp(%v) = %v, want %v", x, got, want)
		}
	}

	if fastExp(-100) != 0 {
		t.Errorf("fastExp(-100) = %v, want 0", fastExp(-100))
	}
}

func TestFloorf(t *testing.T) {
	testCases := []struct {
		in       float32
		expected float32
	}{
		{0, 0},
		{0.9, 0},
		{2.7, 2},
		{-0.3, -1},
		{-2, -2},
		{-2.1, -3},
		{5, 5},
	}

	for _, tc := range testCases {
		if got := floorf(tc.in); got != tc.expected {
			t.Errorf("floorf(%v) = %v, want %v", tc.in, got, tc.expected)
		}
	}
}

func TestClamp01(t *testing.T) {
	testCases := []struct {
		in       float32
		expected float32
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.5, 1},
	}

	for _, tc := range testCases {
		if got := clamp01(tc.in); got != tc.expected {
			t.Errorf("clamp01(%v) = %v, want %v", tc.in, got, tc.expected)
		}
	}
}

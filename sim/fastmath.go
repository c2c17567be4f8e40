package sim

import "math"

// Fast float32 approximations for the per-cell hot path. They avoid the
// float64 round trips of the math package and stay well within the
// tolerance of the growth dynamics.

const (
	pi    = float32(math.Pi)
	twoPi = float32(2 * math.Pi)
)

// fastExp approximates exp(x) with a Pade form, saturating outside
// [-4, 4]. The growth bell only ever asks for non-positive arguments.
func fastExp(x float32) float32 {
	if x > 4 {
		return 54.6
	}
	if x < -4 {
		return 0
	}
	x2 := x * x
	return (12 + 6*x + x2) / (12 - 6*x + x2)
}

// fastSin approximates sin(x) using Bhaskara's formula after reducing x
// to [-pi, pi]. Good to about 1e-3, and exact at zero.
func fastSin(x float32) float32 {
	x -= twoPi * floorf(x/twoPi+0.5)

	ax := x
	if ax < 0 {
		ax = -ax
	}
	y := 4 * x * (pi - ax) / (pi * pi)
	return 0.225*(y*absf(y)-y) + y
}

// floorf is a float32 floor for values within int32 range.
func floorf(x float32) float32 {
	i := float32(int32(x))
	if i > x {
		i--
	}
	return i
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

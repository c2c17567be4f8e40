// Package camera provides the orbital camera for the volume view.
package camera

import "math"

// Orbit constraints. MinDistance exceeds the worst-case distance from a
// pan-shifted orbit center to a cube corner (1.5), so the eye can never
// enter the unit cube.
const (
	MinPitch    float32 = -179
	MaxPitch    float32 = 179
	MinDistance float32 = 1.6
	MaxDistance float32 = 8.0
	MaxPan      float32 = 0.5

	// PanSpeed is the orbit center speed in cube units per second while a
	// pan key is held.
	PanSpeed float32 = 0.35

	DefaultYaw      float32 = 35
	DefaultPitch    float32 = -20
	DefaultDistance float32 = 2.5
)

// Direction identifies one of the four pan keys.
type Direction int

const (
	PanForward Direction = iota
	PanBack
	PanLeft
	PanRight
	numDirections
)

// Camera orbits the pan-shifted cube center at a clamped distance.
// Yaw rotates the heading around the vertical axis and pitch tilts it
// around the camera's right axis; both are stored in degrees. Pan shifts
// the orbit center within the ground plane, relative to the current yaw.
type Camera struct {
	Yaw      float32 // degrees, normalized to [-180, 180)
	Pitch    float32 // degrees in [MinPitch, MaxPitch]
	Distance float32 // cube units in [MinDistance, MaxDistance]
	PanX     float32 // orbit center offset in [-MaxPan, MaxPan]
	PanY     float32

	held [numDirections]bool
}

// New creates a camera at the default orbit.
func New() *Camera {
	return &Camera{
		Yaw:      DefaultYaw,
		Pitch:    DefaultPitch,
		Distance: DefaultDistance,
	}
}

// SetRotation sets absolute yaw and pitch in degrees. Yaw wraps, pitch
// clamps.
func (c *Camera) SetRotation(yaw, pitch float32) {
	c.Yaw = normalizeYaw(yaw)
	c.Pitch = clamp(pitch, MinPitch, MaxPitch)
}

// AdjustRotation applies yaw and pitch deltas in degrees.
func (c *Camera) AdjustRotation(dYaw, dPitch float32) {
	c.SetRotation(c.Yaw+dYaw, c.Pitch+dPitch)
}

// AdjustDistance moves the eye along the view axis, clamped to the orbit
// range.
func (c *Camera) AdjustDistance(delta float32) {
	c.Distance = clamp(c.Distance+delta, MinDistance, MaxDistance)
}

// SetPanKey records the held state of one directional pan key.
func (c *Camera) SetPanKey(d Direction, held bool) {
	if d < 0 || d >= numDirections {
		return
	}
	c.held[d] = held
}

// IntegratePan advances the orbit center from the held pan keys.
// Forward/back move along the camera's ground-plane heading and
// left/right strafe perpendicular to it, so pan always tracks the view.
func (c *Camera) IntegratePan(dt float32) {
	var fwd, strafe float32
	if c.held[PanForward] {
		fwd++
	}
	if c.held[PanBack] {
		fwd--
	}
	if c.held[PanRight] {
		strafe++
	}
	if c.held[PanLeft] {
		strafe--
	}
	if fwd == 0 && strafe == 0 {
		return
	}

	yawRad := float64(c.Yaw) * math.Pi / 180
	sin := float32(math.Sin(yawRad))
	cos := float32(math.Cos(yawRad))

	// Heading is (sin, cos) in the ground plane; strafe uses its
	// right-hand perpendicular.
	dx := fwd*sin + strafe*cos
	dy := fwd*cos - strafe*sin

	c.PanX = clamp(c.PanX+dx*PanSpeed*dt, -MaxPan, MaxPan)
	c.PanY = clamp(c.PanY+dy*PanSpeed*dt, -MaxPan, MaxPan)
}

// Reset returns the camera to the default orbit and clears pan state.
func (c *Camera) Reset() {
	c.Yaw = DefaultYaw
	c.Pitch = DefaultPitch
	c.Distance = DefaultDistance
	c.PanX = 0
	c.PanY = 0
	c.held = [numDirections]bool{}
}

// normalizeYaw wraps an angle in degrees to [-180, 180).
func normalizeYaw(a float32) float32 {
	a = float32(math.Mod(float64(a)+180, 360))
	if a < 0 {
		a += 360
	}
	return a - 180
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

package params

import (
	"math"

	"github.com/pthm-cable/ember/camera"
)

// Block is the fixed parameter block uploaded to the compute kernels
// each sub-step: seven 16-byte groups of four float32 scalars. The CPU
// stepper, the OpenCL kernel, and the packer all index this one layout.
type Block [BlockLen]float32

// Block scalar indices, grouped by 16-byte alignment.
const (
	IdxInnerRadius = iota
	IdxOuterRadius
	IdxInnerStrength
	IdxOuterStrength

	IdxGrowthCenter
	IdxGrowthWidth
	IdxGrowthWidthNorm
	IdxWidthScale

	IdxGrowthRate
	IdxDecayRate
	IdxDiffusionScaled
	IdxFissionThreshold

	IdxInstability
	IdxSuppression
	IdxGlobalAverage
	IdxNeighborMode

	IdxSimTime
	IdxYawRad
	IdxPitchRad
	IdxDistance

	IdxPanX
	IdxPanY
	IdxRaySteps
	IdxPaletteBands

	IdxContrast
	IdxGridSize
	IdxFrameSeed
	IdxNoiseAmp

	BlockLen
)

// CFLScale returns the diffusion stability scale for a neighbor mode.
// The scales are exact powers of two so the packed product divides back
// out without rounding.
func CFLScale(mode int) float32 {
	switch mode {
	case 6:
		return 1.0 / 8
	case 26:
		return 1.0 / 32
	default:
		return 1.0 / 16
	}
}

// degToRad is shared by pack and unpack so the angle transform inverts
// to within one float32 ulp.
const degToRad = math.Pi / 180

// DegToRad converts degrees to radians in float32.
func DegToRad(deg float32) float32 {
	return float32(float64(deg) * degToRad)
}

// RadToDeg inverts DegToRad.
func RadToDeg(rad float32) float32 {
	return float32(float64(rad) / degToRad)
}

// PackInputs carries the per-frame values injected alongside the record.
type PackInputs struct {
	SimTime float32

	// WidthScale is the kernel-derived growth width correction, exactly
	// 1 when growthWidthNorm is 0.
	WidthScale float32

	GridSize int

	// FrameSeed is drawn fresh once per frame; only the low 24 bits
	// survive the float32 round trip, so Pack masks the rest.
	FrameSeed uint32
}

// Pack assembles the upload block from the record, the camera, and the
// per-frame inputs. Every transform is inverted exactly by Unpack except
// the two angles, which round-trip to within one ulp.
func Pack(r *Record, cam *camera.Camera, in PackInputs) Block {
	var b Block

	b[IdxInnerRadius] = r.InnerRadius
	b[IdxOuterRadius] = r.OuterRadius
	b[IdxInnerStrength] = r.InnerStrength
	b[IdxOuterStrength] = r.OuterStrength

	b[IdxGrowthCenter] = r.GrowthCenter
	b[IdxGrowthWidth] = r.GrowthWidth
	b[IdxGrowthWidthNorm] = r.GrowthWidthNorm
	b[IdxWidthScale] = in.WidthScale

	b[IdxGrowthRate] = r.GrowthRate
	b[IdxDecayRate] = r.DecayRate
	b[IdxDiffusionScaled] = r.DiffusionRate * CFLScale(r.NeighborMode)
	b[IdxFissionThreshold] = r.FissionThreshold

	b[IdxInstability] = r.InstabilityFactor
	b[IdxSuppression] = r.SuppressionFactor
	b[IdxGlobalAverage] = r.GlobalAverage
	b[IdxNeighborMode] = float32(r.NeighborMode)

	b[IdxSimTime] = in.SimTime
	b[IdxYawRad] = DegToRad(cam.Yaw)
	b[IdxPitchRad] = DegToRad(cam.Pitch)
	b[IdxDistance] = cam.Distance

	b[IdxPanX] = cam.PanX
	b[IdxPanY] = cam.PanY
	b[IdxRaySteps] = float32(r.RaySteps)
	b[IdxPaletteBands] = float32(r.PaletteMode*16 + r.BandMask)

	b[IdxContrast] = r.Contrast
	b[IdxGridSize] = float32(in.GridSize)
	b[IdxFrameSeed] = float32(in.FrameSeed & 0xFFFFFF)
	b[IdxNoiseAmp] = r.NoiseAmplitude

	return b
}

// Unpack recovers the record, camera, and per-frame inputs from a packed
// block. GlobalAverage rides along in the record.
func Unpack(b *Block) (Record, camera.Camera, PackInputs) {
	mode := int(b[IdxNeighborMode])
	paletteMode, bandMask := DecodePaletteBands(b[IdxPaletteBands])

	r := Record{
		InnerRadius:   b[IdxInnerRadius],
		OuterRadius:   b[IdxOuterRadius],
		InnerStrength: b[IdxInnerStrength],
		OuterStrength: b[IdxOuterStrength],

		GrowthCenter:    b[IdxGrowthCenter],
		GrowthWidth:     b[IdxGrowthWidth],
		GrowthWidthNorm: b[IdxGrowthWidthNorm],
		GrowthRate:      b[IdxGrowthRate],
		DecayRate:       b[IdxDecayRate],
		DiffusionRate:   b[IdxDiffusionScaled] / CFLScale(mode),

		FissionThreshold:  b[IdxFissionThreshold],
		InstabilityFactor: b[IdxInstability],
		SuppressionFactor: b[IdxSuppression],
		NoiseAmplitude:    b[IdxNoiseAmp],

		NeighborMode: mode,

		RaySteps:    int(b[IdxRaySteps]),
		PaletteMode: paletteMode,
		BandMask:    bandMask,
		Contrast:    b[IdxContrast],

		GlobalAverage: b[IdxGlobalAverage],
	}

	cam := camera.Camera{
		Yaw:      RadToDeg(b[IdxYawRad]),
		Pitch:    RadToDeg(b[IdxPitchRad]),
		Distance: b[IdxDistance],
		PanX:     b[IdxPanX],
		PanY:     b[IdxPanY],
	}

	in := PackInputs{
		SimTime:    b[IdxSimTime],
		WidthScale: b[IdxWidthScale],
		GridSize:   int(b[IdxGridSize]),
		FrameSeed:  uint32(b[IdxFrameSeed]),
	}

	return r, cam, in
}

// DecodePaletteBands splits the folded palette/band scalar back into the
// palette mode and the quartile band mask.
func DecodePaletteBands(v float32) (mode, mask int) {
	n := int(v)
	if n < 0 {
		n = 0
	}
	return n / 16, n & 15
}

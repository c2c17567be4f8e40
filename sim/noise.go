package sim

// hashNoise maps a cell coordinate and frame seed to a deterministic
// value in [0, 1). Integer avalanche mix, identical on every platform
// and trivially portable to the OpenCL kernel.
func hashNoise(x, y, z, seed uint32) float32 {
	h := x*374761393 + y*668265263 + z*2246822519 + seed*1442695041
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float32(h&0x00FFFFFF) / float32(0x01000000)
}

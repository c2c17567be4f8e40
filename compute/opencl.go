//go:build opencl

package compute

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/pthm-cable/ember/params"
	"github.com/pthm-cable/ember/sim"
)

// energyKernelSource is the device twin of sim.stepRange. The block
// indices, the fast_exp/fast_sin approximants, and the hash mix match
// the CPU versions so both backends produce the same dynamics.
const energyKernelSource = `
#define P_GROWTH_CENTER 4
#define P_FISSION_T 11
#define P_INSTABILITY 12
#define P_SUPPRESSION 13
#define P_GLOBAL_AVG 14
#define P_NEIGHBOR_MODE 15
#define P_GROWTH_RATE 8
#define P_DECAY_RATE 9
#define P_DIFF_SCALED 10
#define P_SIM_TIME 16
#define P_FRAME_SEED 26
#define P_NOISE_AMP 27

#define FPI 3.14159274f
#define FTWO_PI 6.28318548f

float fast_exp(float x)
{
    if (x > 4.0f) {
        return 54.6f;
    }
    if (x < -4.0f) {
        return 0.0f;
    }
    float x2 = x * x;
    return (12.0f + 6.0f * x + x2) / (12.0f - 6.0f * x + x2);
}

float fast_sin(float x)
{
    x -= FTWO_PI * floor(x / FTWO_PI + 0.5f);
    float ax = fabs(x);
    float y = 4.0f * x * (FPI - ax) / (FPI * FPI);
    return 0.225f * (y * fabs(y) - y) + y;
}

float hash_noise(uint x, uint y, uint z, uint seed)
{
    uint h = x * 374761393u + y * 668265263u + z * 2246822519u + seed * 1442695041u;
    h = (h ^ (h >> 13)) * 1274126177u;
    h ^= h >> 16;
    return (float)(h & 0x00FFFFFFu) / 16777216.0f;
}

int wrap(int v, int size)
{
    if (v < 0) {
        return v + size;
    }
    if (v >= size) {
        return v - size;
    }
    return v;
}

__kernel void energy_step(
    const int size,
    const int cells,
    const int tap_count,
    const float abs_sum,
    const float width_eff,
    __global const float4* taps,
    __global const float* block,
    __global const float* src,
    __global float* dst)
{
    int idx = get_global_id(0);
    if (idx >= cells) {
        return;
    }

    int x = idx % size;
    int y = (idx / size) % size;
    int z = idx / (size * size);

    float e = src[idx];

    float potential = 0.0f;
    if (abs_sum > 0.0f) {
        float sum = 0.0f;
        for (int t = 0; t < tap_count; t++) {
            float4 tap = taps[t];
            int xx = wrap(x + (int)tap.x, size);
            int yy = wrap(y + (int)tap.y, size);
            int zz = wrap(z + (int)tap.z, size);
            sum += src[(zz * size + yy) * size + xx] * tap.w;
        }
        potential = sum / abs_sum;
    }

    float arg = (potential - block[P_GROWTH_CENTER]) / width_eff;
    float bell = fast_exp(-arg * arg / 2.0f);

    float fission_t = block[P_FISSION_T];
    float inv_range = fission_t < 1.0f ? 1.0f / (1.0f - fission_t) : 0.0f;
    float excess = 0.0f;
    if (e > fission_t && inv_range > 0.0f) {
        excess = (e - fission_t) * inv_range;
        bell -= excess * block[P_INSTABILITY];
    }

    float growth = bell - 0.5f - block[P_GLOBAL_AVG] * block[P_SUPPRESSION];
    float metabolism = e * e * block[P_DECAY_RATE];

    int mode = (int)block[P_NEIGHBOR_MODE];
    float lap = 0.0f;
    for (int dz = -1; dz <= 1; dz++) {
        for (int dy = -1; dy <= 1; dy++) {
            for (int dx = -1; dx <= 1; dx++) {
                int m = dx * dx + dy * dy + dz * dz;
                if (m == 0) {
                    continue;
                }
                float w;
                if (m == 1) {
                    w = 1.0f;
                } else if (m == 2) {
                    if (mode < 18) {
                        continue;
                    }
                    w = 0.70710678f;
                } else {
                    if (mode < 26) {
                        continue;
                    }
                    w = 0.57735027f;
                }
                int xx = wrap(x + dx, size);
                int yy = wrap(y + dy, size);
                int zz = wrap(z + dz, size);
                lap += w * (src[(zz * size + yy) * size + xx] - e);
            }
        }
    }
    float diffusion = lap * block[P_DIFF_SCALED];

    float fission_noise = 0.0f;
    if (excess > 0.0f) {
        float chaos = fast_sin(((float)(x + y + z) + block[P_SIM_TIME]) * 0.5f);
        fission_noise = chaos * excess * 0.1f;
    }

    float noise = (hash_noise((uint)x, (uint)y, (uint)z, (uint)block[P_FRAME_SEED]) * 2.0f - 1.0f) * block[P_NOISE_AMP];

    float next = e + block[P_GROWTH_RATE] * growth - metabolism + diffusion + fission_noise + noise;
    dst[idx] = clamp(next, 0.0f, 1.0f);
}`

type openclBackend struct {
	context *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program
	kernel  *cl.Kernel

	tapBuf   *cl.MemObject
	blockBuf *cl.MemObject
	srcBuf   *cl.MemObject
	dstBuf   *cl.MemObject

	cells      int
	tapCap     int
	tapScratch []float32
	lastKernel *sim.Kernel
	deviceName string
}

// NewOpenCL builds the OpenCL backend on the first available GPU device,
// falling back to an OpenCL CPU device.
func NewOpenCL() (Backend, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with clinfo"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available")
	}

	var device *cl.Device
	for _, p := range platforms {
		devices, derr := p.GetDevices(cl.DeviceTypeGPU)
		if derr != nil && derr != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			device = devices[0]
			break
		}
	}
	if device == nil {
		for _, p := range platforms {
			devices, derr := p.GetDevices(cl.DeviceTypeCPU)
			if derr != nil && derr != cl.ErrDeviceNotFound {
				continue
			}
			if len(devices) > 0 {
				device = devices[0]
				break
			}
		}
	}
	if device == nil {
		return nil, errors.New("no suitable OpenCL devices found")
	}

	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	program, err := context.CreateProgramWithSource([]string{energyKernelSource})
	if err != nil {
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err := program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		program.Release()
		queue.Release()
		context.Release()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("building OpenCL program: %s", string(buildErr))
		}
		return nil, fmt.Errorf("building OpenCL program: %w", err)
	}
	kernel, err := program.CreateKernel("energy_step")
	if err != nil {
		program.Release()
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("creating OpenCL kernel: %w", err)
	}
	blockBuf, err := context.CreateEmptyBuffer(cl.MemReadOnly, params.BlockLen*int(unsafe.Sizeof(float32(0))))
	if err != nil {
		kernel.Release()
		program.Release()
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("allocating param block buffer: %w", err)
	}

	b := &openclBackend{
		context:    context,
		queue:      queue,
		program:    program,
		kernel:     kernel,
		blockBuf:   blockBuf,
		deviceName: device.Name(),
	}
	slog.Info("opencl backend ready", "device", b.deviceName)
	return b, nil
}

func (b *openclBackend) Name() string { return "opencl" }

// Step uploads the active grid and the parameter block, runs one device
// pass, and reads the result back into the inactive grid. Transfers are
// per-step; the grid is small enough that simplicity wins over keeping
// state resident.
func (b *openclBackend) Step(f *sim.FieldBuffer, k *sim.Kernel, block *params.Block) error {
	cells := f.Cells()
	if err := b.ensureGridBuffers(cells); err != nil {
		return err
	}
	if err := b.ensureTaps(k); err != nil {
		return err
	}

	if _, err := b.queue.EnqueueWriteBufferFloat32(b.blockBuf, false, 0, block[:], nil); err != nil {
		return fmt.Errorf("writing param block: %w", err)
	}
	if _, err := b.queue.EnqueueWriteBufferFloat32(b.srcBuf, false, 0, f.Active(), nil); err != nil {
		return fmt.Errorf("writing source grid: %w", err)
	}

	if err := b.kernel.SetArgs(
		int32(f.Size()),
		int32(cells),
		int32(len(k.Offsets)),
		k.AbsSum,
		k.WidthEff,
		b.tapBuf,
		b.blockBuf,
		b.srcBuf,
		b.dstBuf,
	); err != nil {
		return fmt.Errorf("setting kernel arguments: %w", err)
	}

	if _, err := b.queue.EnqueueNDRangeKernel(b.kernel, nil, []int{cells}, nil, nil); err != nil {
		return fmt.Errorf("enqueueing step: %w", err)
	}
	if _, err := b.queue.EnqueueReadBufferFloat32(b.dstBuf, true, 0, f.Inactive(), nil); err != nil {
		return fmt.Errorf("reading result grid: %w", err)
	}
	return nil
}

// ensureGridBuffers sizes the src/dst buffers to the field, reallocating
// after a grid resize.
func (b *openclBackend) ensureGridBuffers(cells int) error {
	if cells == b.cells && b.srcBuf != nil {
		return nil
	}
	if b.srcBuf != nil {
		b.srcBuf.Release()
		b.srcBuf = nil
	}
	if b.dstBuf != nil {
		b.dstBuf.Release()
		b.dstBuf = nil
	}

	byteSize := cells * int(unsafe.Sizeof(float32(0)))
	srcBuf, err := b.context.CreateEmptyBuffer(cl.MemReadOnly, byteSize)
	if err != nil {
		return fmt.Errorf("allocating source buffer: %w", err)
	}
	dstBuf, err := b.context.CreateEmptyBuffer(cl.MemWriteOnly, byteSize)
	if err != nil {
		srcBuf.Release()
		return fmt.Errorf("allocating result buffer: %w", err)
	}
	b.srcBuf = srcBuf
	b.dstBuf = dstBuf
	b.cells = cells
	return nil
}

// ensureTaps re-uploads the weight table when the kernel was rebuilt.
// Rebuilds allocate a fresh sim.Kernel, so pointer identity is the dirty
// check.
func (b *openclBackend) ensureTaps(k *sim.Kernel) error {
	if k == b.lastKernel && b.tapBuf != nil {
		return nil
	}

	count := len(k.Offsets)
	if cap(b.tapScratch) < count*4 {
		b.tapScratch = make([]float32, 0, count*4)
	}
	b.tapScratch = b.tapScratch[:0]
	for _, o := range k.Offsets {
		b.tapScratch = append(b.tapScratch, float32(o.DX), float32(o.DY), float32(o.DZ), o.W)
	}

	if count > b.tapCap || b.tapBuf == nil {
		if b.tapBuf != nil {
			b.tapBuf.Release()
			b.tapBuf = nil
		}
		alloc := count
		if alloc < 1 {
			alloc = 1
		}
		buf, err := b.context.CreateEmptyBuffer(cl.MemReadOnly, alloc*4*int(unsafe.Sizeof(float32(0))))
		if err != nil {
			return fmt.Errorf("allocating tap buffer: %w", err)
		}
		b.tapBuf = buf
		b.tapCap = alloc
	}

	if count > 0 {
		if _, err := b.queue.EnqueueWriteBufferFloat32(b.tapBuf, false, 0, b.tapScratch, nil); err != nil {
			return fmt.Errorf("writing tap buffer: %w", err)
		}
	}
	b.lastKernel = k
	return nil
}

func (b *openclBackend) Release() {
	if b.tapBuf != nil {
		b.tapBuf.Release()
		b.tapBuf = nil
	}
	if b.blockBuf != nil {
		b.blockBuf.Release()
		b.blockBuf = nil
	}
	if b.srcBuf != nil {
		b.srcBuf.Release()
		b.srcBuf = nil
	}
	if b.dstBuf != nil {
		b.dstBuf.Release()
		b.dstBuf = nil
	}
	if b.kernel != nil {
		b.kernel.Release()
		b.kernel = nil
	}
	if b.program != nil {
		b.program.Release()
		b.program = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.context != nil {
		b.context.Release()
		b.context = nil
	}
}

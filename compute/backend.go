// Package compute selects the field-update backend: the pooled CPU
// stepper, or the OpenCL kernel when built with -tags opencl.
package compute

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/ember/params"
	"github.com/pthm-cable/ember/sim"
)

// Backend advances the field by one sub-step. Step reads the active grid
// and writes the full inactive grid; the caller swaps afterwards.
type Backend interface {
	Name() string
	Step(f *sim.FieldBuffer, k *sim.Kernel, block *params.Block) error
	Release()
}

// Backend kinds accepted by New.
const (
	KindAuto   = "auto"
	KindCPU    = "cpu"
	KindOpenCL = "opencl"
)

// New builds the requested backend. "auto" tries OpenCL first and falls
// back to the CPU stepper when the build or the hardware lacks it.
func New(kind string, pool *sim.Pool) (Backend, error) {
	switch kind {
	case KindCPU, "":
		return NewCPU(pool), nil
	case KindOpenCL:
		return NewOpenCL()
	case KindAuto:
		b, err := NewOpenCL()
		if err != nil {
			slog.Info("falling back to cpu backend", "reason", err)
			return NewCPU(pool), nil
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown compute backend %q", kind)
	}
}

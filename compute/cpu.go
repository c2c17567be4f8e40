package compute

import (
	"github.com/pthm-cable/ember/params"
	"github.com/pthm-cable/ember/sim"
)

// CPU runs the update rule on the shared worker pool. It never fails.
type CPU struct {
	stepper *sim.Stepper
}

func NewCPU(pool *sim.Pool) *CPU {
	return &CPU{stepper: sim.NewStepper(pool)}
}

func (c *CPU) Name() string { return "cpu" }

func (c *CPU) Step(f *sim.FieldBuffer, k *sim.Kernel, block *params.Block) error {
	c.stepper.Step(f, k, block)
	return nil
}

func (c *CPU) Release() {}

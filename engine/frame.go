package engine

import (
	"log/slog"

	"github.com/pthm-cable/ember/params"
	"github.com/pthm-cable/ember/sim"
	"github.com/pthm-cable/ember/telemetry"
)

// Update advances one windowed frame: integrate held pan keys, run the
// sub-step loop, fold any finished reduction, pack the frame block, and
// ray march the volume. dt is the wall-clock frame delta and only feeds
// pan integration; sub-steps always advance sim time by exactly sim.DT.
func (e *Engine) Update(dt float32) {
	if dt > e.cfg.Derived.MaxDT32 {
		dt = e.cfg.Derived.MaxDT32
	}
	e.perf.StartUpdate()
	e.cam.IntegratePan(dt)
	e.advanceSim()

	e.perf.StartPhase(telemetry.PhaseRender)
	e.lastPix = e.renderer.Frame(e.field, &e.lastBlock)

	e.perf.EndUpdate()
	e.frame++
	e.maybeEmitStats()
}

// UpdateHeadless advances the simulation without rendering a frame.
func (e *Engine) UpdateHeadless() {
	e.perf.StartUpdate()
	e.advanceSim()
	e.perf.EndUpdate()
	e.frame++
	e.maybeEmitStats()
}

func (e *Engine) advanceSim() {
	if e.kernelDirty {
		e.kernel = sim.BuildKernel(&e.rec)
		e.kernelDirty = false
	}

	e.perf.StartPhase(telemetry.PhaseSubStep)
	e.step()

	e.perf.StartPhase(telemetry.PhaseReduce)
	e.pollReduction()

	e.perf.StartPhase(telemetry.PhasePack)
	e.pack()
}

// step runs the sub-step loop. A latched fault refuses stepping until
// ReinitCompute clears it; rendering and input stay live so the HUD can
// show the error.
func (e *Engine) step() {
	if e.fault != nil || e.speed <= 0 {
		return
	}

	e.frameSeed = uint32(e.rng.Int63()) & 0xFFFFFF
	interval := int64(e.cfg.Simulation.ReductionInterval)

	for i := 0; i < e.speed; i++ {
		block := params.Pack(&e.rec, e.cam, params.PackInputs{
			SimTime:    e.simTime,
			WidthScale: e.kernel.WidthScale,
			GridSize:   e.field.Size(),
			FrameSeed:  e.frameSeed,
		})
		if err := e.backend.Step(e.field, e.kernel, &block); err != nil {
			e.fault = err
			slog.Error("compute fault", "backend", e.backend.Name(), "error", err)
			return
		}
		e.field.Swap()
		e.simTime += sim.DT
		e.subSteps++

		if e.subSteps%interval == 0 {
			// A busy pipeline skips the trigger; the mean just stays
			// stale for one interval.
			e.reduction.Trigger(e.field)
		}
	}
}

// pollReduction folds a finished mean into the record, discarding
// results from before a reseed or resize.
func (e *Engine) pollReduction() {
	mean, generation, ok := e.reduction.Poll()
	if ok && generation == e.field.Generation() {
		e.rec.GlobalAverage = mean
	}
}

// pack refreshes the frame block for the renderer and for anyone
// snapshotting engine state.
func (e *Engine) pack() {
	e.lastBlock = params.Pack(&e.rec, e.cam, params.PackInputs{
		SimTime:    e.simTime,
		WidthScale: e.kernel.WidthScale,
		GridSize:   e.field.Size(),
		FrameSeed:  e.frameSeed,
	})
}

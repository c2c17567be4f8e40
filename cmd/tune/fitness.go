package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/ember/config"
	"github.com/pthm-cable/ember/engine"
	"github.com/pthm-cable/ember/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params   *ParamVector
	frames   int64
	seeds    []int64
	gridSize int
	speed    int
	baseCfg  *config.Config

	mu          sync.Mutex
	bestFitness float64
	lastQuality float64 // quality from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, frames int64, seeds []int64, gridSize int, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		frames:      frames,
		seeds:       seeds,
		gridSize:    gridSize,
		speed:       8, // full sub-step rate; eval throughput matters, not wall-clock pacing
		baseCfg:     baseCfg,
		bestFitness: math.Inf(1),
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// A field run ends early when the energy collapses to nothing or
// freezes near saturation; either way the dynamics are over.
const (
	collapseFloor   = 0.0005
	saturateCeiling = 0.85

	warmupFrames = 60 // let the seed noise organize before judging
	sampleEvery  = 10
)

// sample is one point of the per-run telemetry series.
type sample struct {
	mean   float64
	p90    float64
	active float64
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalFrames int64
	samples        []sample
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival frames scaled by quality: fields that
// stay alive longer, and move while doing so, score lower.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	for _, r := range results {
		totalFitness += fe.computeFitness(r)
		totalQuality += fe.computeQuality(r.samples)
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless run. It ends at collapse,
// saturation, or the frame cap, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	result := &runResult{}

	e, err := engine.New(engine.Options{
		Config:   fe.baseCfg,
		Seed:     seed,
		Headless: true,
		GridSize: fe.gridSize,
		Speed:    fe.speed,
	})
	if err != nil {
		// A run that cannot start scores as an immediate collapse.
		return result
	}
	defer e.Unload()

	clamped := fe.params.Clamp(x)
	for i, spec := range fe.params.Specs {
		e.SetParameter(spec.Name, clamped[i])
	}

	for e.Frame() < fe.frames {
		e.UpdateHeadless()
		if e.Fault() != nil {
			result.survivalFrames = e.Frame()
			return result
		}

		frame := e.Frame()
		if frame <= warmupFrames || frame%sampleEvery != 0 {
			continue
		}

		mean := float64(e.GlobalAverage())
		if mean < collapseFloor || mean > saturateCeiling {
			result.survivalFrames = frame
			return result
		}

		fs := e.FieldStats()
		result.samples = append(result.samples, sample{
			mean:   mean,
			p90:    fs.P90,
			active: fs.ActiveFraction,
		})
	}

	result.survivalFrames = fe.frames
	return result
}

// computeFitness calculates the scalar fitness (lower = better).
// Survival dominates; quality adds up to a full doubling to separate
// parameter sets that all last the whole run.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalFrames)
	quality := fe.computeQuality(r.samples)
	return -(survival * (1.0 + quality))
}

// Quality component weights.
const (
	qualityWeightMotion    = 0.40
	qualityWeightBand      = 0.35
	qualityWeightOccupancy = 0.25

	// Targets for a field that reads as alive: mean energy in the
	// growth band, a moderate share of active cells, and a mean that
	// keeps changing between samples.
	targetMean      = 0.25
	targetMeanWidth = 0.15
	targetActive    = 0.30
	targetActWidth  = 0.20
	motionScale     = 0.005
)

// computeQuality computes field liveliness in [0, 1] from run samples.
func (fe *FitnessEvaluator) computeQuality(samples []sample) float64 {
	if len(samples) < 2 {
		return 0
	}

	means := make([]float64, len(samples))
	var bandSum, occSum float64
	for i, s := range samples {
		means[i] = s.mean

		d := (s.mean - targetMean) / targetMeanWidth
		bandSum += math.Exp(-d * d)

		a := (s.active - targetActive) / targetActWidth
		occSum += math.Exp(-a * a)
	}
	n := float64(len(samples))
	bandScore := bandSum / n
	occScore := occSum / n

	// A static field has zero std across samples; the exponential ramp
	// saturates once the mean visibly oscillates.
	_, std := telemetry.SeriesStats(means)
	motionScore := 1.0 - math.Exp(-std/motionScale)

	quality := qualityWeightMotion*motionScore +
		qualityWeightBand*bandScore +
		qualityWeightOccupancy*occScore

	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Package main provides CMA-ES tuning for finding field parameters
// that keep the energy field alive and moving.
package main

import (
	"github.com/pthm-cable/ember/params"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // SetByName key
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// tunable lists the dynamics parameters the search explores. Render
// parameters, the discrete modes, growthWidthNorm, and noiseAmplitude
// stay locked at their defaults.
var tunable = []string{
	"innerRadius",
	"outerRadius",
	"innerStrength",
	"outerStrength",
	"growthCenter",
	"growthWidth",
	"growthRate",
	"decayRate",
	"diffusionRate",
	"fissionThreshold",
	"instabilityFactor",
	"suppressionFactor",
}

// NewParamVector creates the tunable dynamics subset, with bounds and
// defaults taken from the parameter specs.
func NewParamVector() *ParamVector {
	d := params.Defaults()
	specs := make([]ParamSpec, 0, len(tunable))
	for _, name := range tunable {
		ps, ok := params.SpecFor(name)
		if !ok {
			continue
		}
		def, _ := d.GetByName(name)
		specs = append(specs, ParamSpec{Name: name, Min: ps.Min, Max: ps.Max, Default: def})
	}
	return &ParamVector{Specs: specs}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToRecord applies clamped parameter values to a record.
func (pv *ParamVector) ApplyToRecord(rec *params.Record, values []float64) {
	clamped := pv.Clamp(values)
	for i, spec := range pv.Specs {
		rec.SetByName(spec.Name, clamped[i])
	}
}

// ExtractFromRecord reads the tunable values out of a record, e.g. to
// start the search from a saved preset.
func (pv *ParamVector) ExtractFromRecord(rec *params.Record) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i], _ = rec.GetByName(spec.Name)
	}
	return v
}

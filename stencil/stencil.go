// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

// Package stencil models the linear, fixed-offset weighted sum the solver
// advances a domain with. A stencil is always linear: evaluating it is the
// dot product of its weights with gathered neighbor values.
package stencil

import "github.com/TEALab-org/nhls-sub000/geometry"

// Stencil is the capability set both time-invariant and time-varying
// stencils share.
type Stencil interface {
	// Dim is the number of spatial dimensions the offsets use, in {1,2,3}.
	Dim() int
	// Offsets returns the K integer offset vectors. Only the first Dim
	// components of each are meaningful.
	Offsets() [][geometry.MaxDim]int
	// Weights returns the K weights the stencil uses at integer time t. A
	// time-invariant stencil ignores t.
	Weights(t int) []float64
	// Slopes returns the per-dimension (min,max) magnitude of the offsets:
	// how far a trapezoidal region must shrink per step to stay clear of
	// the boundary.
	Slopes() geometry.Slopes
}

// constant is a Stencil whose weights never change with time.
type constant struct {
	dim     int
	offsets [][geometry.MaxDim]int
	weights []float64
	slopes  geometry.Slopes
}

// New builds a time-invariant Stencil from parallel offsets/weights slices.
// offsets[i] must have length dim. It panics if the two slices disagree in
// length, dim is out of range, or offsets is empty — a stencil with no
// terms cannot express a linear operator.
func New(dim int, offsets [][]int, weights []float64) Stencil {
	if len(weights) != len(offsets) {
		panic("stencil: offsets and weights differ in length")
	}
	return &constant{
		dim:     dim,
		offsets: packOffsets(dim, offsets),
		weights: append([]float64(nil), weights...),
		slopes:  computeSlopes(dim, offsets),
	}
}

func (c *constant) Dim() int                         { return c.dim }
func (c *constant) Offsets() [][geometry.MaxDim]int   { return c.offsets }
func (c *constant) Weights(int) []float64             { return c.weights }
func (c *constant) Slopes() geometry.Slopes           { return c.slopes }

// timeVarying is a Stencil whose weights are a function of integer time,
// sharing one fixed offset/slopes set across all t (a time-varying
// stencil may retune its weights every step but not its footprint).
type timeVarying struct {
	dim       int
	offsets   [][geometry.MaxDim]int
	weightsAt func(t int) []float64
	slopes    geometry.Slopes
}

// NewTimeVarying builds a Stencil whose weights are computed by weightsAt
// for each requested time. offsets is fixed across all t.
func NewTimeVarying(dim int, offsets [][]int, weightsAt func(t int) []float64) Stencil {
	return &timeVarying{
		dim:       dim,
		offsets:   packOffsets(dim, offsets),
		weightsAt: weightsAt,
		slopes:    computeSlopes(dim, offsets),
	}
}

func (tv *timeVarying) Dim() int                       { return tv.dim }
func (tv *timeVarying) Offsets() [][geometry.MaxDim]int { return tv.offsets }
func (tv *timeVarying) Weights(t int) []float64         { return tv.weightsAt(t) }
func (tv *timeVarying) Slopes() geometry.Slopes         { return tv.slopes }

func packOffsets(dim int, offsets [][]int) [][geometry.MaxDim]int {
	if dim < 1 || dim > geometry.MaxDim {
		panic("stencil: dimension out of range")
	}
	if len(offsets) == 0 {
		panic("stencil: a stencil needs at least one offset")
	}
	packed := make([][geometry.MaxDim]int, len(offsets))
	for i, o := range offsets {
		if len(o) != dim {
			panic("stencil: offset length does not match dimension")
		}
		for d := 0; d < dim; d++ {
			packed[i][d] = o[d]
		}
	}
	return packed
}

func computeSlopes(dim int, offsets [][]int) geometry.Slopes {
	var s geometry.Slopes
	for _, o := range offsets {
		for d := 0; d < dim; d++ {
			if o[d] < 0 && -o[d] > s[d][0] {
				s[d][0] = -o[d]
			}
			if o[d] > 0 && o[d] > s[d][1] {
				s[d][1] = o[d]
			}
		}
	}
	return s
}

// IsTimeVarying reports whether s is backed by a time-varying weight
// function, as opposed to one fixed weight vector.
func IsTimeVarying(s Stencil) bool {
	_, ok := s.(*timeVarying)
	return ok
}

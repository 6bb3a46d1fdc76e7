// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

// Package convolve implements the frequency-domain periodic convolution
// operator: a circulant stencil applied s times over a rectangular
// sub-region via one forward FFT, one elementwise multiply by a
// precomputed frequency kernel, and one inverse FFT. Valid exactly when
// the region's s-step dependency cone never reaches the true domain
// boundary, which is the planner's responsibility to guarantee — this
// package only ever sees a closed, self-contained box.
package convolve

import (
	"fmt"
	"math/cmplx"

	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/stencil"
	"github.com/TEALab-org/nhls-sub000/workerpool"
)

// PeriodicOp is a precomputed periodic convolution: an FFT transformer for
// the box it was built over, plus the frequency-domain kernel raised to
// the requested step count. Immutable after construction; safe to call
// Apply from multiple goroutines as long as each caller supplies its own
// scratch buffer.
type PeriodicOp struct {
	transformer *Transformer
	box         geometry.AABB
	steps       int
	freqKer     []complex128
}

// NewPeriodicOp builds the periodic convolution operator for box,
// advancing s steps of st.
func NewPeriodicOp(pool *workerpool.Pool, chunkSize int, box geometry.AABB, st stencil.Stencil, s int) (*PeriodicOp, error) {
	if s < 0 {
		return nil, fmt.Errorf("convolve: negative step count %d", s)
	}

	tr, err := NewTransformer(box)
	if err != nil {
		return nil, err
	}

	kernel := make([]float64, box.BufferSize())
	CirculantKernel(box, st.Offsets(), st.Weights(0), kernel)

	freq := tr.Forward(pool, chunkSize, kernel, nil)
	freqKer := make([]complex128, len(freq))
	raiseToStep(pool, chunkSize, freq, freqKer, s)

	return &PeriodicOp{transformer: tr, box: box, steps: s, freqKer: freqKer}, nil
}

// CirculantKernel writes the real-space circulant form of (offsets,
// weights) into kernel (length box.BufferSize(), zeroed first): for each
// (offset, weight) pair, weight is added at
// box.PeriodicCoord(box.Min - offset). The negation is required because
// convolving with a kernel k(x) computes sum(k(x-y)*u(y)) = sum(w_i *
// u(x+offset_i)) only when the kernel's support is mirrored around the
// origin — the single point where implementations most often err.
func CirculantKernel(box geometry.AABB, offsets [][geometry.MaxDim]int, weights []float64, kernel []float64) {
	for i := range kernel {
		kernel[i] = 0
	}
	var coord [geometry.MaxDim]int
	for i, off := range offsets {
		for d := 0; d < box.Dim; d++ {
			coord[d] = box.Min[d] - off[d]
		}
		pos := box.PeriodicCoord(coord[:box.Dim])
		lin := box.CoordToLinear(pos[:box.Dim])
		kernel[lin] += weights[i]
	}
}

func raiseToStep(pool *workerpool.Pool, chunkSize int, src, dst []complex128, s int) {
	pool.ParallelChunks(len(src), chunkSize, func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = cmplx.Pow(src[i], complex(float64(s), 0))
		}
	})
}

// NewPeriodicOpFromKernel builds a periodic convolution operator directly
// from an already-composed real-space circulant kernel (length
// box.BufferSize()), rather than deriving one from a stencil's offsets and
// weights. Used by the time-varying executor: package tvkernel composes a
// whole period's worth of per-step stencil evaluations into one dense
// kernel, which this constructor turns into the same kind of operator
// NewPeriodicOp produces for a time-invariant stencil — s is metadata only
// (the number of steps kernel already represents), never raised to a
// further power, since tvkernel's composition already accounts for every
// step in range.
func NewPeriodicOpFromKernel(pool *workerpool.Pool, chunkSize int, box geometry.AABB, kernel []float64, s int) (*PeriodicOp, error) {
	tr, err := NewTransformer(box)
	if err != nil {
		return nil, err
	}
	freq := tr.Forward(pool, chunkSize, kernel, nil)
	freqKer := make([]complex128, len(freq))
	copy(freqKer, freq)
	return &PeriodicOp{transformer: tr, box: box, steps: s, freqKer: freqKer}, nil
}

// Steps returns the number of time steps one Apply call advances.
func (op *PeriodicOp) Steps() int { return op.steps }

// Box returns the region this operator was built over.
func (op *PeriodicOp) Box() geometry.AABB { return op.box }

// FreqBufferSize is the number of complex128 scratch slots Apply needs.
func (op *PeriodicOp) FreqBufferSize() int { return op.transformer.FreqBufferSize() }

// Apply advances uIn by Steps() steps into uOut, using scratchC (length
// FreqBufferSize()) as frequency-domain scratch. uIn, uOut, and scratchC
// must each be sized for Box() (buffer_size and complex_buffer_size
// respectively) — a caller precondition this package does not re-check.
func (op *PeriodicOp) Apply(pool *workerpool.Pool, chunkSize int, uIn, uOut []float64, scratchC []complex128) {
	freq := op.transformer.Forward(pool, chunkSize, uIn, scratchC)

	pool.ParallelChunks(len(freq), chunkSize, func(start, end int) {
		for i := start; i < end; i++ {
			freq[i] *= op.freqKer[i]
		}
	})

	op.transformer.Inverse(pool, chunkSize, freq, uOut)
	op.transformer.Normalize(pool, chunkSize, uOut, op.box.BufferSize())
}

// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package convolve

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/workerpool"
)

type axisTransform struct {
	real  *fourier.FFT      // non-nil for the last axis only
	cmplx *fourier.CmplxFFT // non-nil for every other axis
	n     int               // extent this plan was built for
}

// Transformer is the forward/inverse real-FFT plan pair for one box: a
// real->complex transform on the last axis (Hermitian-compressed) composed
// with a full complex->complex transform on every other axis. PeriodicOp
// builds one internally to run its apply(); tvkernel builds its own
// Transformer per composition wrap-box, since it needs the raw
// forward/inverse pair to multiply two distinct per-step kernels together
// rather than raise one kernel to a power.
type Transformer struct {
	box  geometry.AABB
	axes []axisTransform
}

// NewTransformer plans a real<->complex FFT pair for box. It returns an
// error instead of panicking because plan creation is the one fallible
// external capability in the design (section 7: "FFT plan creation
// failure: fatal at construction").
func NewTransformer(box geometry.AABB) (*Transformer, error) {
	extents := box.Extents()
	axes := make([]axisTransform, box.Dim)
	for d := 0; d < box.Dim; d++ {
		n := extents[d]
		if n < 1 {
			return nil, fmt.Errorf("convolve: degenerate extent %d on axis %d", n, d)
		}
		if d == box.Dim-1 {
			axes[d] = axisTransform{real: fourier.NewFFT(n), n: n}
		} else {
			axes[d] = axisTransform{cmplx: fourier.NewCmplxFFT(n), n: n}
		}
	}
	return &Transformer{box: box, axes: axes}, nil
}

// Box returns the region this transformer was built over.
func (tr *Transformer) Box() geometry.AABB { return tr.box }

// FreqBufferSize is the number of complex128 slots a forward transform of
// this box's buffer produces.
func (tr *Transformer) FreqBufferSize() int { return tr.box.ComplexBufferSize() }

// Forward runs the last-axis real->complex FFT followed by a full complex
// FFT on every other axis, writing the Hermitian half-spectrum into dst
// (allocated if nil) and returning it. Unnormalized, per the FFTW
// convention the rest of the design assumes.
func (tr *Transformer) Forward(pool *workerpool.Pool, chunkSize int, real []float64, dst []complex128) []complex128 {
	if dst == nil {
		dst = make([]complex128, tr.FreqBufferSize())
	}

	lastAxis := tr.box.Dim - 1
	lastExtents := tr.box.Extents()
	complexExtents := tr.box.ComplexExtents()

	transformLines(lastExtents, tr.box.Dim, lastAxis, func(_, lineStride, lines int) {
		pool.ParallelChunks(lines, chunkSize, func(lo, hi int) {
			scratch := make([]complex128, complexExtents[lastAxis])
			for li := lo; li < hi; li++ {
				start := lineOffset(lastExtents, tr.box.Dim, lastAxis, li)
				srcLine := gatherReal(real, start, lineStride, tr.axes[lastAxis].n)
				tr.axes[lastAxis].real.Coefficients(scratch, srcLine)
				dstStart := lineOffset(complexExtents, tr.box.Dim, lastAxis, li)
				dstStride := strideOf(complexExtents, tr.box.Dim, lastAxis)
				scatterComplex(dst, dstStart, dstStride, scratch)
			}
		})
	})

	for axis := 0; axis < lastAxis; axis++ {
		tr.transformComplexAxisInPlace(pool, chunkSize, dst, complexExtents, axis, false)
	}

	return dst
}

// Inverse inverts every non-last axis (complex, unnormalized) then the
// last axis (complex -> real, unnormalized), writing into realOut (length
// BufferSize()). The caller is responsible for the final divide-by-N —
// PeriodicOp does it once per Apply, tvkernel does it once per tree node.
func (tr *Transformer) Inverse(pool *workerpool.Pool, chunkSize int, freq []complex128, realOut []float64) {
	lastAxis := tr.box.Dim - 1
	lastExtents := tr.box.Extents()
	complexExtents := tr.box.ComplexExtents()

	for axis := lastAxis - 1; axis >= 0; axis-- {
		tr.transformComplexAxisInPlace(pool, chunkSize, freq, complexExtents, axis, true)
	}

	transformLines(lastExtents, tr.box.Dim, lastAxis, func(_, lineStride, lines int) {
		pool.ParallelChunks(lines, chunkSize, func(lo, hi int) {
			scratch := make([]float64, tr.axes[lastAxis].n)
			for li := lo; li < hi; li++ {
				srcStart := lineOffset(complexExtents, tr.box.Dim, lastAxis, li)
				srcStride := strideOf(complexExtents, tr.box.Dim, lastAxis)
				srcLine := gatherComplex(freq, srcStart, srcStride, complexExtents[lastAxis])
				tr.axes[lastAxis].real.Sequence(scratch, srcLine)
				dstStart := lineOffset(lastExtents, tr.box.Dim, lastAxis, li)
				scatterReal(realOut, dstStart, lineStride, scratch)
			}
		})
	})
}

// Normalize divides every element of buf by n, chunked and parallel like
// every other slice operation in this package.
func (tr *Transformer) Normalize(pool *workerpool.Pool, chunkSize int, buf []float64, n int) {
	scale := float64(n)
	pool.ParallelChunks(len(buf), chunkSize, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			buf[i] /= scale
		}
	})
}

func (tr *Transformer) transformComplexAxisInPlace(pool *workerpool.Pool, chunkSize int, buf []complex128, shape [geometry.MaxDim]int, axis int, inverse bool) {
	n := tr.axes[axis].n
	stride := strideOf(shape, tr.box.Dim, axis)
	lines := linesAlong(shape, tr.box.Dim, axis)

	pool.ParallelChunks(lines, chunkSize, func(lo, hi int) {
		scratch := make([]complex128, n)
		out := make([]complex128, n)
		for li := lo; li < hi; li++ {
			start := lineOffset(shape, tr.box.Dim, axis, li)
			for i := 0; i < n; i++ {
				scratch[i] = buf[start+i*stride]
			}
			if inverse {
				tr.axes[axis].cmplx.Sequence(out, scratch)
			} else {
				tr.axes[axis].cmplx.Coefficients(out, scratch)
			}
			for i := 0; i < n; i++ {
				buf[start+i*stride] = out[i]
			}
		}
	})
}

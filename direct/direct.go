// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

// Package direct is the boundary stencil solver: an explicit, step-by-step
// evaluation over a trapezoidal region that shrinks every step, with an
// implicit zero boundary condition at the true domain edge. Used wherever
// a region's dependency cone is too close to the domain boundary for the
// frequency-domain periodic solve in package convolve to be valid.
package direct

import (
	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/stencil"
	"github.com/TEALab-org/nhls-sub000/workerpool"
)

// Params describes one direct-solve frustum.
type Params struct {
	Stencil stencil.Stencil
	// Root is the true domain; reads outside it are zero (rule 2 of the
	// design's direct-solver contract).
	Root geometry.AABB
	// Input is the frustum's grown input AABB — every buffer this package
	// touches is indexed in Input's coordinate system for the entire run,
	// even as the "trustworthy" active region shrinks step by step.
	Input geometry.AABB
	// Output is the target AABB after Steps steps.
	Output geometry.AABB
	// Mask marks which faces are interior (sloped, shrink every step) as
	// opposed to flat against Root (never shrink; zero-BC applies there).
	Mask geometry.SlopedMask
	// Steps is the number of explicit stencil applications to run.
	Steps int
	// StartTime is the absolute time index of the first step, for
	// time-varying stencils; st.Weights(StartTime+k) is used for step k.
	StartTime int
}

// Solve runs p.Steps explicit stencil steps, shrinking the active region
// from p.Input down to p.Output on every masked face, and returns whichever
// of bufA/bufB holds the final state. Both buffers must be sized
// p.Input.BufferSize(); bufA must already hold the state over p.Input at
// time p.StartTime. The returned slice, indexed through
// p.Input.CoordToLinear (i.e. laid out as p.Input, not p.Output — the
// caller narrows to p.Output's cells itself), holds the result.
func Solve(pool *workerpool.Pool, chunkSize int, p Params, bufA, bufB []float64) []float64 {
	step := pickStep(p.Stencil)
	slopes := p.Stencil.Slopes()

	region := p.Input
	src, dst := bufA, bufB
	for k := 0; k < p.Steps; k++ {
		out := region.GrowBy(-1, slopes, p.Mask)
		step(pool, chunkSize, p.Stencil, p.Root, p.Input, out, p.StartTime+k, src, dst)
		region = out
		src, dst = dst, src
	}
	return src
}

func readZeroBC(root, input geometry.AABB, buf []float64, coord []int) float64 {
	if !root.Contains(coord) {
		return 0
	}
	return buf[input.CoordToLinear(coord)]
}

// stepFunc evaluates one stencil step, writing every cell of out (a
// sub-region of input) into dst, reading neighbors of src through
// readZeroBC.
type stepFunc func(pool *workerpool.Pool, chunkSize int, st stencil.Stencil, root, input, out geometry.AABB, t int, src, dst []float64)

// genericStep is the reference implementation: parallelizes over the
// outer (axis-0) extent of out in contiguous chunks, then walks the
// remaining dimensions and every stencil term in order.
func genericStep(pool *workerpool.Pool, chunkSize int, st stencil.Stencil, root, input, out geometry.AABB, t int, src, dst []float64) {
	offsets := st.Offsets()
	weights := st.Weights(t)
	dim := out.Dim
	outerN := out.Max[0] - out.Min[0] + 1

	pool.ParallelChunks(outerN, chunkSize, func(lo, hi int) {
		coord := make([]int, dim)
		neighbor := make([]int, dim)

		var walk func(d int)
		walk = func(d int) {
			if d == dim {
				var sum float64
				for k, off := range offsets {
					for i := 0; i < dim; i++ {
						neighbor[i] = coord[i] + off[i]
					}
					sum += weights[k] * readZeroBC(root, input, src, neighbor)
				}
				dst[input.CoordToLinear(coord)] = sum
				return
			}
			for v := out.Min[d]; v <= out.Max[d]; v++ {
				coord[d] = v
				walk(d + 1)
			}
		}

		for i0 := lo; i0 < hi; i0++ {
			coord[0] = out.Min[0] + i0
			walk(1)
		}
	})
}

// pickStep selects a specialized fast path when st's offsets exactly match
// (in both shape and enumeration order) one of the standard catalog
// stencils in package stencil, falling back to genericStep otherwise. A
// specialized path sums its terms in the same order as genericStep would
// for that exact offset list, so the two are bit-identical for a matching
// stencil — not merely within the 1-ULP tolerance the design asks for.
func pickStep(st stencil.Stencil) stepFunc {
	offsets := st.Offsets()
	switch {
	case st.Dim() == 1 && sameOffsets(offsets, offsets1D3[:]):
		return solve1D3Point
	case st.Dim() == 2 && sameOffsets(offsets, offsets2D5[:]):
		return solve2D5Point
	default:
		return genericStep
	}
}

var offsets1D3 = [3][geometry.MaxDim]int{{-1}, {1}, {0}}
var offsets2D5 = [5][geometry.MaxDim]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}, {0, 0}}

func sameOffsets(got [][geometry.MaxDim]int, want []([geometry.MaxDim]int)) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// solve1D3Point is the 1-D, 3-point (left, right, center) specialization of
// genericStep: same offset order as stencil.Standard1D3PointMean, same
// zero-BC rule, same parallel chunking over the single axis.
func solve1D3Point(pool *workerpool.Pool, chunkSize int, st stencil.Stencil, root, input, out geometry.AABB, t int, src, dst []float64) {
	w := st.Weights(t)
	w0, w1, w2 := w[0], w[1], w[2]
	n := out.Max[0] - out.Min[0] + 1

	pool.ParallelChunks(n, chunkSize, func(lo, hi int) {
		left := make([]int, 1)
		right := make([]int, 1)
		center := make([]int, 1)
		for i := lo; i < hi; i++ {
			x := out.Min[0] + i
			left[0], right[0], center[0] = x-1, x+1, x
			sum := w0*readZeroBC(root, input, src, left) +
				w1*readZeroBC(root, input, src, right) +
				w2*readZeroBC(root, input, src, center)
			dst[input.CoordToLinear(center)] = sum
		}
	})
}

// solve2D5Point is the 2-D, 5-point (axis cross) specialization of
// genericStep, matching stencil.Standard2D5PointMean's offset order.
func solve2D5Point(pool *workerpool.Pool, chunkSize int, st stencil.Stencil, root, input, out geometry.AABB, t int, src, dst []float64) {
	w := st.Weights(t)
	w0, w1, w2, w3, w4 := w[0], w[1], w[2], w[3], w[4]
	outerN := out.Max[0] - out.Min[0] + 1

	pool.ParallelChunks(outerN, chunkSize, func(lo, hi int) {
		xm1 := make([]int, 2)
		xp1 := make([]int, 2)
		ym1 := make([]int, 2)
		yp1 := make([]int, 2)
		center := make([]int, 2)
		for i := lo; i < hi; i++ {
			x := out.Min[0] + i
			for y := out.Min[1]; y <= out.Max[1]; y++ {
				xm1[0], xm1[1] = x-1, y
				xp1[0], xp1[1] = x+1, y
				ym1[0], ym1[1] = x, y-1
				yp1[0], yp1[1] = x, y+1
				center[0], center[1] = x, y
				sum := w0*readZeroBC(root, input, src, xm1) +
					w1*readZeroBC(root, input, src, xp1) +
					w2*readZeroBC(root, input, src, ym1) +
					w3*readZeroBC(root, input, src, yp1) +
					w4*readZeroBC(root, input, src, center)
				dst[input.CoordToLinear(center)] = sum
			}
		}
	})
}

// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package stencil

// This file collects the fixed catalog of stencils spec.md section 8
// exercises as the standard property-test fixtures: it gives them a single
// reusable home instead of inlining offset/weight literals into every test.

// Standard1D1Point is the trivial identity stencil: offset (0), weight 1.
func Standard1D1Point() Stencil {
	return New(1, [][]int{{0}}, []float64{1.0})
}

// Standard2D1Point is the 2-D identity stencil: offset (0,0), weight 1.
func Standard2D1Point() Stencil {
	return New(2, [][]int{{0, 0}}, []float64{1.0})
}

// Standard1D3PointMean averages a cell with its left and right neighbor,
// weight 1/3 each.
func Standard1D3PointMean() Stencil {
	return New(1, [][]int{{-1}, {1}, {0}}, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3})
}

// Standard2D5PointMean averages a cell with its four axis neighbors,
// weight 1/5 each.
func Standard2D5PointMean() Stencil {
	return New(2,
		[][]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}, {0, 0}},
		[]float64{0.2, 0.2, 0.2, 0.2, 0.2},
	)
}

// Standard3D7PointMean averages a cell with its six axis neighbors, weight
// 1/7 each.
func Standard3D7PointMean() Stencil {
	return New(3,
		[][]int{{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1}, {0, 0, 0}},
		[]float64{1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7},
	)
}

// Shift1D is the pure-shift stencil used by the shift property test: a
// single offset (-1) with weight 1, so applying it once sets u'(x) = u(x-1),
// moving every value one cell toward higher indices.
func Shift1D() Stencil {
	return New(1, [][]int{{-1}}, []float64{1.0})
}

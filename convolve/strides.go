// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package convolve

import "github.com/TEALab-org/nhls-sub000/geometry"

// fullStrides computes row-major strides for shape (last dimension varies
// fastest), matching the layout geometry.AABB uses for its own buffers.
func fullStrides(shape [geometry.MaxDim]int, dim int) [geometry.MaxDim]int {
	var s [geometry.MaxDim]int
	acc := 1
	for d := dim - 1; d >= 0; d-- {
		s[d] = acc
		acc *= shape[d]
	}
	return s
}

func strideOf(shape [geometry.MaxDim]int, dim, axis int) int {
	return fullStrides(shape, dim)[axis]
}

func linesAlong(shape [geometry.MaxDim]int, dim, axis int) int {
	total := 1
	for d := 0; d < dim; d++ {
		total *= shape[d]
	}
	return total / shape[axis]
}

// lineOffset maps a line index (one per combination of every coordinate
// except axis) back to the linear offset of that line's first element.
// The decoding order only has to agree with itself between gather and
// scatter calls for the same (shape, axis); it need not match any other
// package's enumeration order.
func lineOffset(shape [geometry.MaxDim]int, dim, axis, lineIndex int) int {
	strides := fullStrides(shape, dim)
	offset := 0
	remaining := lineIndex
	for d := dim - 1; d >= 0; d-- {
		if d == axis {
			continue
		}
		size := shape[d]
		coord := remaining % size
		remaining /= size
		offset += coord * strides[d]
	}
	return offset
}

// transformLines resolves the (start, stride, line count) triple for
// sweeping every line along axis in a buffer shaped shape.
func transformLines(shape [geometry.MaxDim]int, dim, axis int, fn func(lineStart, lineStride, lines int)) {
	fn(0, strideOf(shape, dim, axis), linesAlong(shape, dim, axis))
}

func gatherReal(buf []float64, start, stride, n int) []float64 {
	if stride == 1 {
		return buf[start : start+n]
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = buf[start+i*stride]
	}
	return out
}

func scatterComplex(buf []complex128, start, stride int, line []complex128) {
	for i, v := range line {
		buf[start+i*stride] = v
	}
}

func gatherComplex(buf []complex128, start, stride, n int) []complex128 {
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		out[i] = buf[start+i*stride]
	}
	return out
}

func scatterReal(buf []float64, start, stride int, line []float64) {
	for i, v := range line {
		buf[start+i*stride] = v
	}
}

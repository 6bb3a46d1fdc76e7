// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package direct

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/stencil"
	"github.com/TEALab-org/nhls-sub000/workerpool"
)

func fill(u []float64) {
	for i := range u {
		u[i] = math.Sin(float64(i)*1.3) + 2
	}
}

// TestSpecialized1D3PointMatchesGeneric checks solve1D3Point is bit-for-bit
// identical to genericStep for the same stencil, region, and buffers.
func TestSpecialized1D3PointMatchesGeneric(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	root := geometry.New(1, []int{0}, []int{19})
	input := geometry.New(1, []int{2}, []int{17})
	out := geometry.New(1, []int{3}, []int{16})
	st := stencil.Standard1D3PointMean()

	srcA := make([]float64, input.BufferSize())
	fill(srcA)
	srcB := append([]float64(nil), srcA...)

	dstGeneric := make([]float64, input.BufferSize())
	dstSpecial := make([]float64, input.BufferSize())
	copy(dstGeneric, srcA)
	copy(dstSpecial, srcB)

	genericStep(pool, 4, st, root, input, out, 0, srcA, dstGeneric)
	solve1D3Point(pool, 4, st, root, input, out, 0, srcB, dstSpecial)

	for i := range dstGeneric {
		if dstGeneric[i] != dstSpecial[i] {
			t.Fatalf("cell %d: generic=%v specialized=%v", i, dstGeneric[i], dstSpecial[i])
		}
	}
}

// TestSpecialized2D5PointMatchesGeneric is the 2-D analog.
func TestSpecialized2D5PointMatchesGeneric(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	root := geometry.New(2, []int{0, 0}, []int{11, 9})
	input := geometry.New(2, []int{1, 1}, []int{10, 8})
	out := geometry.New(2, []int{2, 2}, []int{9, 7})
	st := stencil.Standard2D5PointMean()

	srcA := make([]float64, input.BufferSize())
	fill(srcA)
	srcB := append([]float64(nil), srcA...)

	dstGeneric := make([]float64, input.BufferSize())
	dstSpecial := make([]float64, input.BufferSize())

	genericStep(pool, 3, st, root, input, out, 0, srcA, dstGeneric)
	solve2D5Point(pool, 3, st, root, input, out, 0, srcB, dstSpecial)

	for i := range dstGeneric {
		if dstGeneric[i] != dstSpecial[i] {
			t.Fatalf("cell %d: generic=%v specialized=%v", i, dstGeneric[i], dstSpecial[i])
		}
	}
}

// TestSolveShrinksToFrustumOutput runs a full frustum's worth of direct
// steps and checks the active region after Steps steps lands exactly on
// frustum.Output, as geometry.Frustum promises.
func TestSolveShrinksToFrustumOutput(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	st := stencil.Standard1D3PointMean()
	root := geometry.New(1, []int{0}, []int{19})
	frustum := geometry.Frustum{Output: geometry.New(1, []int{8}, []int{11}), Root: root, Steps: 3}
	slopes := st.Slopes()
	input := frustum.InputAABB(slopes)

	bufA := make([]float64, input.BufferSize())
	fill(bufA)
	bufB := make([]float64, input.BufferSize())

	p := Params{
		Stencil: st, Root: root, Input: input, Output: frustum.Output,
		Mask: frustum.SlopedMask(), Steps: frustum.Steps,
	}
	_ = Solve(pool, 4, p, bufA, bufB)

	region := input
	for k := 0; k < frustum.Steps; k++ {
		region = region.GrowBy(-1, slopes, p.Mask)
	}
	if !region.Equal(frustum.Output) {
		t.Fatalf("region after %d steps = %+v, want %+v", frustum.Steps, region, frustum.Output)
	}
}

// TestSolveIdentityStencilIsNoOp checks the trivial 1-point identity
// stencil leaves every value unchanged across any number of steps, which
// also exercises the zero-BC path doing nothing (no off-center offsets to
// read out of bounds).
func TestSolveIdentityStencilIsNoOp(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	st := stencil.Standard1D1Point()
	root := geometry.New(1, []int{0}, []int{9})
	input := geometry.New(1, []int{0}, []int{9})

	bufA := make([]float64, input.BufferSize())
	fill(bufA)
	want := append([]float64(nil), bufA...)
	bufB := make([]float64, input.BufferSize())

	p := Params{
		Stencil: st, Root: root, Input: input, Output: input,
		Mask: geometry.SlopedMask{}, Steps: 4,
	}
	got := Solve(pool, 3, p, bufA, bufB)

	for i := range want {
		require.InDeltaf(t, want[i], got[i], 1e-12, "cell %d", i)
	}
}

// TestSolveZeroBoundaryCondition checks a neighbor read landing outside
// Root contributes zero, by comparing a 3-point mean against a
// hand-computed reference at the domain edge.
func TestSolveZeroBoundaryCondition(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Close()

	st := stencil.Standard1D3PointMean()
	root := geometry.New(1, []int{0}, []int{4})
	input := root
	out := geometry.New(1, []int{0}, []int{4})

	src := []float64{10, 20, 30, 40, 50}
	dst := make([]float64, len(src))

	genericStep(pool, 2, st, root, input, out, 0, src, dst)

	// cell 0: left neighbor (-1) is outside root -> 0; right is 20; center 10.
	want0 := (0.0 + 20.0 + 10.0) / 3
	require.InDelta(t, want0, dst[0], 1e-12)
	// cell 4: right neighbor (5) is outside root -> 0; left is 40; center 50.
	want4 := (40.0 + 0.0 + 50.0) / 3
	require.InDelta(t, want4, dst[4], 1e-12)
	// interior cell 2 unaffected by boundary.
	want2 := (20.0 + 40.0 + 30.0) / 3
	require.InDelta(t, want2, dst[2], 1e-12)
}

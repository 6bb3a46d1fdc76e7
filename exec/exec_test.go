// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/plan"
	"github.com/TEALab-org/nhls-sub000/scratch"
	"github.com/TEALab-org/nhls-sub000/stencil"
	"github.com/TEALab-org/nhls-sub000/workerpool"
)

// naiveAdvance runs steps explicit stencil applications over root with an
// implicit zero boundary condition, independent of any plan/arena
// machinery — the reference every Executor.Apply result is checked
// against.
func naiveAdvance(st stencil.Stencil, root geometry.AABB, steps, startTime int, in []float64) []float64 {
	offsets := st.Offsets()
	dim := root.Dim
	cur := append([]float64(nil), in...)

	coord := make([]int, dim)
	neighbor := make([]int, dim)
	var walk func(d int, next []float64)
	for k := 0; k < steps; k++ {
		weights := st.Weights(startTime + k)
		next := make([]float64, len(cur))
		walk = func(d int, dst []float64) {
			if d == dim {
				var sum float64
				for i, off := range offsets {
					for j := 0; j < dim; j++ {
						neighbor[j] = coord[j] + off[j]
					}
					if root.Contains(neighbor) {
						sum += weights[i] * cur[root.CoordToLinear(neighbor)]
					}
				}
				dst[root.CoordToLinear(coord)] = sum
				return
			}
			for v := root.Min[d]; v <= root.Max[d]; v++ {
				coord[d] = v
				walk(d+1, dst)
			}
		}
		walk(0, next)
		cur = next
	}
	return cur
}

func fillPattern(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(float64(i)*0.37) + 0.5*math.Cos(float64(i)*1.1)
	}
	return out
}

func maxAbsDiff(a, b []float64) float64 {
	m := 0.0
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > m {
			m = d
		}
	}
	return m
}

// buildAndRun generates a plan for (st, root, steps, params), allocates its
// arena with mode, and returns the Executor's result alongside the naive
// reference for the same scenario.
func buildAndRun(t *testing.T, st stencil.Stencil, root geometry.AABB, steps int, params plan.Parameters, mode scratch.Mode) (got, want []float64) {
	t.Helper()

	pl, table, _, err := plan.Generate(st, root, steps, params)
	if err != nil {
		t.Fatalf("plan.Generate: %v", err)
	}
	layout := scratch.Allocate(pl, mode)
	arena := scratch.NewArena(layout.ArenaBytes)
	pool := workerpool.New(params.Threads)
	defer pool.Close()

	e := New(pool, 16, st, root, params.Threads, table, layout, arena, mode)

	in := fillPattern(root.BufferSize())
	out := make([]float64, root.BufferSize())
	e.Apply(pl, in, out, 0)

	return out, naiveAdvance(st, root, steps, 0, in)
}

// TestExecutor1DTimeInvariant reproduces spec.md §8's S6 scenario: a 1-D
// domain [0..100], cutoff 20, ratio 0.5, 100 steps of the standard 3-point
// mean stencil.
func TestExecutor1DTimeInvariant(t *testing.T) {
	root := geometry.New(1, []int{0}, []int{100})
	st := stencil.Standard1D3PointMean()
	params := plan.Parameters{Cutoff: 20, Ratio: 0.5, Threads: 4}

	got, want := buildAndRun(t, st, root, 100, params, scratch.DomainOnly)
	require.LessOrEqualf(t, maxAbsDiff(got, want), 1e-8, "executor result diverges from naive reference")
}

// TestExecutor2DTimeInvariant is the 2-D analog (spec.md §8's S3/S4 grid
// shape), using the standard 5-point mean stencil over a 21x21 domain.
func TestExecutor2DTimeInvariant(t *testing.T) {
	root := geometry.New(2, []int{0, 0}, []int{20, 20})
	st := stencil.Standard2D5PointMean()
	params := plan.Parameters{Cutoff: 4, Ratio: 0.5, Threads: 4}

	got, want := buildAndRun(t, st, root, 24, params, scratch.DomainOnly)
	require.LessOrEqualf(t, maxAbsDiff(got, want), 1e-8, "executor result diverges from naive reference")
}

// TestExecutor3DTimeInvariant is the 3-D analog, a small cube over the
// standard 7-point mean stencil.
func TestExecutor3DTimeInvariant(t *testing.T) {
	root := geometry.New(3, []int{0, 0, 0}, []int{14, 14, 14})
	st := stencil.Standard3D7PointMean()
	params := plan.Parameters{Cutoff: 3, Ratio: 0.5, Threads: 2}

	got, want := buildAndRun(t, st, root, 10, params, scratch.DomainOnly)
	require.LessOrEqualf(t, maxAbsDiff(got, want), 1e-8, "executor result diverges from naive reference")
}

// TestExecutorTimeVarying exercises the tvkernel-backed path: a stencil
// whose weights alternate between two configurations every other step, so
// both even and odd (step_min, step_max) ranges the planner can request
// are actually exercised.
func TestExecutorTimeVarying(t *testing.T) {
	st := stencil.NewTimeVarying(1, [][]int{{-1}, {1}, {0}}, func(t int) []float64 {
		if t%2 == 0 {
			return []float64{0.3, 0.3, 0.4}
		}
		return []float64{0.25, 0.25, 0.5}
	})
	root := geometry.New(1, []int{0}, []int{60})
	params := plan.Parameters{Cutoff: 10, Ratio: 0.5, Threads: 4}

	got, want := buildAndRun(t, st, root, 40, params, scratch.DomainAndOp)
	require.LessOrEqualf(t, maxAbsDiff(got, want), 1e-6, "time-varying executor result diverges from naive reference")
}

// TestExecutorRunsAcrossMultipleCentralSolves forces the planner's Repeat
// wrapper to actually repeat (root period smaller than the total step
// count), exercising runSequence's ping-pong across more than one
// execCentral call.
func TestExecutorRunsAcrossMultipleCentralSolves(t *testing.T) {
	root := geometry.New(1, []int{0}, []int{40})
	st := stencil.Standard1D3PointMean()
	params := plan.Parameters{Cutoff: 5, Ratio: 0.2, Threads: 2}

	pl, _, _, err := plan.Generate(st, root, 50, params)
	if err != nil {
		t.Fatalf("plan.Generate: %v", err)
	}
	if pl.Node(pl.Root).Kind != plan.Repeat {
		t.Fatal("expected a Repeat root")
	}
	if pl.Node(pl.Root).Count < 2 {
		t.Skip("planner did not produce a multi-repeat scenario for this configuration")
	}

	got, want := buildAndRun(t, st, root, 50, params, scratch.DomainOnly)
	require.LessOrEqualf(t, maxAbsDiff(got, want), 1e-8, "executor result diverges from naive reference")
}

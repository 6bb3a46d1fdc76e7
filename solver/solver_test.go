// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package solver

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/stencil"
)

// TestUnitStencilIdentity checks spec.md §8 property #1: a stencil whose
// weights sum to 1, applied to a constantly-1 domain, leaves every cell
// at 1.0 after any positive number of steps.
func TestUnitStencilIdentity(t *testing.T) {
	cases := []struct {
		name string
		st   stencil.Stencil
		aabb geometry.AABB
	}{
		{"1d1point", stencil.Standard1D1Point(), geometry.New(1, []int{0}, []int{30})},
		{"2d1point", stencil.Standard2D1Point(), geometry.New(2, []int{0, 0}, []int{20, 20})},
		{"1d3point", stencil.Standard1D3PointMean(), geometry.New(1, []int{0}, []int{60})},
		{"2d5point", stencil.Standard2D5PointMean(), geometry.New(2, []int{0, 0}, []int{20, 20})},
		{"3d7point", stencil.Standard3D7PointMean(), geometry.New(3, []int{0, 0, 0}, []int{12, 12, 12})},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, err := New(Parameters{
				Stencil: c.st, AABB: c.aabb, Steps: 10,
				Cutoff: 3, Ratio: 0.5, ChunkSize: 16, Threads: 4,
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer s.Close()

			n := c.aabb.BufferSize()
			in := make([]float64, n)
			out := make([]float64, n)
			for i := range in {
				in[i] = 1.0
			}
			s.Apply(Domain{AABB: c.aabb, Buf: in}, Domain{AABB: c.aabb, Buf: out}, 0)

			for i, v := range out {
				if math.Abs(v-1.0) > 1e-9 {
					t.Fatalf("cell %d = %v, want 1.0", i, v)
				}
			}
		})
	}
}

func TestApplyRejectsMismatchedBuffer(t *testing.T) {
	aabb := geometry.New(1, []int{0}, []int{40})
	s, err := New(Parameters{
		Stencil: stencil.Standard1D3PointMean(), AABB: aabb, Steps: 5,
		Cutoff: 5, Ratio: 0.5, ChunkSize: 8, Threads: 2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("expected Apply to panic on a mismatched buffer length")
		}
	}()
	bad := Domain{AABB: aabb, Buf: make([]float64, 3)}
	good := Domain{AABB: aabb, Buf: make([]float64, aabb.BufferSize())}
	s.Apply(bad, good, 0)
}

func TestZeroStepsIsNoOp(t *testing.T) {
	aabb := geometry.New(1, []int{0}, []int{10})
	s, err := New(Parameters{
		Stencil: stencil.Standard1D3PointMean(), AABB: aabb, Steps: 0,
		Cutoff: 5, Ratio: 0.5, ChunkSize: 8, Threads: 2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	in := make([]float64, aabb.BufferSize())
	out := make([]float64, aabb.BufferSize())
	for i := range in {
		in[i] = float64(i)
	}
	s.Apply(Domain{AABB: aabb, Buf: in}, Domain{AABB: aabb, Buf: out}, 0)
	for i := range out {
		if out[i] != in[i] {
			t.Fatalf("cell %d = %v, want %v (zero-step copy)", i, out[i], in[i])
		}
	}
}

func TestPrintReportAndToDotFile(t *testing.T) {
	aabb := geometry.New(1, []int{0}, []int{60})
	s, err := New(Parameters{
		Stencil: stencil.Standard1D3PointMean(), AABB: aabb, Steps: 30,
		Cutoff: 5, Ratio: 0.5, ChunkSize: 8, Threads: 4,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	var report bytes.Buffer
	s.PrintReport(&report)
	if !strings.Contains(report.String(), "arena:") {
		t.Fatalf("PrintReport output missing arena summary: %q", report.String())
	}

	var dot bytes.Buffer
	if err := s.ToDotFile(&dot); err != nil {
		t.Fatalf("ToDotFile: %v", err)
	}
	out := dot.String()
	if !strings.HasPrefix(out, "digraph plan {") || !strings.HasSuffix(strings.TrimSpace(out), "}") {
		t.Fatalf("ToDotFile did not produce a well-formed digraph: %q", out)
	}
}

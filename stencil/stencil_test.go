// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package stencil

import (
	"testing"

	"github.com/TEALab-org/nhls-sub000/geometry"
)

func TestSlopesFromOffsets(t *testing.T) {
	s := New(2, [][]int{{-2, 1}, {3, -4}, {0, 0}}, []float64{1, 1, 1})
	want := geometry.Slopes{{2, 3}, {4, 1}}
	if got := s.Slopes(); got != want {
		t.Errorf("Slopes() = %v, want %v", got, want)
	}
}

func TestConstantIgnoresTime(t *testing.T) {
	s := Standard1D3PointMean()
	w0 := s.Weights(0)
	w99 := s.Weights(99)
	for i := range w0 {
		if w0[i] != w99[i] {
			t.Errorf("weight %d changed with time: %v vs %v", i, w0, w99)
		}
	}
}

func TestTimeVaryingWeights(t *testing.T) {
	s := NewTimeVarying(1, [][]int{{-1}, {0}, {1}}, func(t int) []float64 {
		return []float64{0.1 * float64(t), 1 - 0.2*float64(t), 0.1 * float64(t)}
	})
	if !IsTimeVarying(s) {
		t.Fatal("expected IsTimeVarying to report true")
	}
	w := s.Weights(3)
	tt := 3.0
	want := []float64{0.1 * tt, 1 - 0.2*tt, 0.1 * tt}
	for i := range want {
		if w[i] != want[i] {
			t.Errorf("weight %d at t=3: got %v, want %v", i, w, want)
		}
	}
}

func TestUnitWeightSum(t *testing.T) {
	fixtures := []struct {
		name string
		s    Stencil
	}{
		{"1d-1pt", Standard1D1Point()},
		{"2d-1pt", Standard2D1Point()},
		{"1d-3pt-mean", Standard1D3PointMean()},
		{"2d-5pt-mean", Standard2D5PointMean()},
		{"3d-7pt-mean", Standard3D7PointMean()},
	}
	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			sum := 0.0
			for _, w := range f.s.Weights(0) {
				sum += w
			}
			if diff := sum - 1.0; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("weights sum to %v, want 1", sum)
			}
		})
	}
}

func TestPackOffsetsPanicsOnDimMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(2, [][]int{{1}}, []float64{1})
}

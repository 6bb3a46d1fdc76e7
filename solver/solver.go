// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

// Package solver is the consumer-facing entry point: construct one with a
// stencil, a root domain, a step count, and tuning parameters, then call
// Apply repeatedly (advancing global_time yourself between calls) to run
// the aperiodic stencil solve. Everything else in this module — geometry,
// stencil, convolve, tvkernel, direct, kernelstore, plan, scratch, exec,
// workerpool — is wired together here.
package solver

import (
	"fmt"

	"github.com/TEALab-org/nhls-sub000/exec"
	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/kernelstore"
	"github.com/TEALab-org/nhls-sub000/plan"
	"github.com/TEALab-org/nhls-sub000/scratch"
	"github.com/TEALab-org/nhls-sub000/stencil"
	"github.com/TEALab-org/nhls-sub000/workerpool"
)

// PlanType names an FFT planning strategy, matching the recognized-option
// vocabulary of the external-interfaces design: {Estimate, Measure,
// Patient, WisdomOnly}. gonum's FFT has no planning-strategy knob (a pure
// Go O(n log n) implementation, built fresh every NewFFT/NewCmplxFFT
// call, with no wisdom file), so this field is accepted for interface
// fidelity and otherwise ignored — the same way the original's
// WisdomOnly variant is a no-op unless a wisdom file happens to exist.
type PlanType int

const (
	Estimate PlanType = iota
	Measure
	Patient
	WisdomOnly
)

// Parameters configures a Solver. AABB, Steps, and Stencil are fixed for
// the Solver's lifetime; PlanType is recorded but never consulted.
type Parameters struct {
	Stencil   stencil.Stencil
	AABB      geometry.AABB
	Steps     int
	Cutoff    int
	Ratio     float64
	ChunkSize int
	Threads   int
	PlanType  PlanType
}

// Domain pairs an AABB with the buffer of values over it, the (AABB,
// mutable real buffer) argument shape Apply takes for both its input and
// output sides.
type Domain struct {
	AABB geometry.AABB
	Buf  []float64
}

// Solver holds everything built once at construction: the plan, its op
// table, the scratch layout and arena, the worker pool, and the Executor
// that walks the plan against caller-supplied buffers.
type Solver struct {
	params Parameters
	pl     *plan.Plan
	table  *kernelstore.Table
	layout scratch.Layout
	arena  *scratch.Arena
	pool   *workerpool.Pool
	exec   *exec.Executor
}

// New validates params, generates a plan for (stencil, root, steps), sizes
// and allocates its scratch arena, and builds the worker pool and
// Executor. Invalid Parameters and plan-generation failures are returned
// as a wrapped error rather than panicking, since a malformed Parameters
// value is a normal, recoverable caller mistake rather than an internal
// invariant violation. Arena allocation is not checked here:
// scratch.NewArena panics if it fails. No FFT operator is built here
// either; the Executor builds each one the first time Apply needs it and
// panics if that fails.
func New(params Parameters) (*Solver, error) {
	if params.ChunkSize <= 0 {
		return nil, fmt.Errorf("solver: chunk_size must be positive, got %d", params.ChunkSize)
	}
	if params.Threads <= 0 {
		return nil, fmt.Errorf("solver: threads must be positive, got %d", params.Threads)
	}
	if params.Steps < 0 {
		return nil, fmt.Errorf("solver: steps must be non-negative, got %d", params.Steps)
	}

	mode := scratch.DomainOnly
	if stencil.IsTimeVarying(params.Stencil) {
		mode = scratch.DomainAndOp
	}

	s := &Solver{params: params}

	if params.Steps == 0 {
		// A zero-step solve never builds a plan — spec.md §6 calls this
		// the caller's no-op to skip, and plan.Generate itself rejects
		// steps == 0 as a malformed request rather than a degenerate one.
		return s, nil
	}

	pl, table, _, err := plan.Generate(params.Stencil, params.AABB, params.Steps, plan.Parameters{
		Cutoff: params.Cutoff, Ratio: params.Ratio, Threads: params.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("solver: generating plan: %w", err)
	}

	layout := scratch.Allocate(pl, mode)
	arena := scratch.NewArena(layout.ArenaBytes)
	pool := workerpool.New(params.Threads)

	s.pl = pl
	s.table = table
	s.layout = layout
	s.arena = arena
	s.pool = pool
	s.exec = exec.New(pool, params.ChunkSize, params.Stencil, params.AABB, params.Threads, table, layout, arena, mode)
	return s, nil
}

// Close releases the Solver's worker pool. Safe to call more than once.
func (s *Solver) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Apply advances in over Params.Steps steps starting at globalTime,
// writing the result into out. in and out must each describe the
// Solver's own root AABB with a buffer of exactly AABB.BufferSize()
// values — a caller precondition, not a recoverable error, per the error
// handling design's treatment of buffer/AABB mismatches.
func (s *Solver) Apply(in, out Domain, globalTime int) {
	if !in.AABB.Equal(s.params.AABB) || !out.AABB.Equal(s.params.AABB) {
		panic("solver: in/out domain AABB does not match the solver's own root AABB")
	}
	n := s.params.AABB.BufferSize()
	if len(in.Buf) != n || len(out.Buf) != n {
		panic(fmt.Sprintf("solver: buffer length must equal root buffer_size (%d)", n))
	}
	if s.params.Steps == 0 {
		copy(out.Buf, in.Buf)
		return
	}
	s.exec.Apply(s.pl, in.Buf, out.Buf, globalTime)
}

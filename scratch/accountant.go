// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

// Package scratch computes and assigns the solver's memory layout: the
// accountant (this file) walks a plan bottom-up to find how many
// 128-byte blocks each node needs, sharing memory windows wherever the
// plan's own ordering guarantees make that safe; the allocator
// (allocator.go) walks the plan again to turn those counts into concrete
// byte offsets; Arena (arena.go) is the one contiguous allocation they
// both describe.
package scratch

import "github.com/TEALab-org/nhls-sub000/plan"

// MinAlignment is the byte alignment (and block size) every arena offset
// is a multiple of.
const MinAlignment = 128

const (
	bytesPerReal    = 8  // float64
	bytesPerComplex = 16 // complex128
)

// Mode selects how much complex scratch a periodic node reserves.
// DomainAndOp is for the time-varying executor, which needs both a
// domain-side and an operator-side complex buffer per node (the
// domain's own FFT plus the kernel-tree node's own FFT, see
// tvkernel.Evaluate and PeriodicOp.Apply), so it reserves twice the
// space DomainOnly does.
type Mode int

const (
	DomainOnly Mode = iota
	DomainAndOp
)

func blocks(bytes int) int {
	return (bytes + MinAlignment - 1) / MinAlignment
}

func realBlocks(bufferSize int) int {
	return blocks(bufferSize * bytesPerReal)
}

func complexBlocks(complexBufferSize int, mode Mode) int {
	b := blocks(complexBufferSize * bytesPerComplex)
	if mode == DomainAndOp {
		b *= 2
	}
	return b
}

func maxInt(vs ...int) int {
	m := 0
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}

// Count returns the number of 128-byte blocks pl's root node needs,
// recursively accounting for every descendant's memory window. This is
// the root-level entry point: the arena size is Count(pl, mode) *
// MinAlignment bytes.
func Count(pl *plan.Plan, mode Mode) int {
	return nodeBlocks(pl, pl.Root, true, mode)
}

// nodeBlocks computes node idx's own block requirement, plus every
// descendant that shares its memory window, following spec.md §4.6:
//
//   - a Direct node with allocated (not preallocated) I/O needs
//     2 * real(input) blocks for its own ping-pong buffers;
//     a preallocated-IO Direct node needs none of its own.
//   - a Periodic node's window is the max of: its own complex-buffer
//     need, the sum of its boundary children's allocated-IO
//     requirements (they run concurrently, each overwriting its own
//     part of the wrong periodic-wrap ring left after the central FFT,
//     so each needs a private region of the window — hence sum, not
//     max), and its time-cut
//     child's own full (allocated-IO) requirement — the time-cut
//     child is always addressed through the arena by the executor's
//     own recursion (unlike a Repeat/Range root child, which is
//     handed the caller's literal buffers directly), so it needs its
//     own real offsets regardless of how little of the parent's
//     window it reuses; it runs strictly after the periodic solve and
//     boundary corrections finish, so its footprint only needs to fit
//     inside that same window, not add to it. A preallocated-IO
//     Periodic node is exactly that max; an allocated-IO one adds its
//     own 2 * real(input).
//   - Repeat takes the max of its periodic child's and (if present)
//     remainder child's preallocated-IO requirement — only one ever
//     executes at a time, the root I/O is the caller's own buffers.
//   - Range (the time-varying analog of Repeat, one central-solve
//     subtree per root-period slab rather than one repeated subtree)
//     takes the max across every slab for the same reason: slabs run
//     strictly in sequence, never concurrently.
func nodeBlocks(pl *plan.Plan, idx int, preallocated bool, mode Mode) int {
	n := pl.Node(idx)
	switch n.Kind {
	case plan.DirectSolve:
		if preallocated {
			return 0
		}
		return 2 * realBlocks(n.Input.BufferSize())

	case plan.PeriodicSolve:
		complexReq := complexBlocks(n.Input.ComplexBufferSize(), mode)
		sumBoundary := 0
		for _, childIdx := range n.BoundaryChildren {
			sumBoundary += nodeBlocks(pl, childIdx, false, mode)
		}
		timeCutReq := 0
		if n.TimeCut >= 0 {
			timeCutReq = nodeBlocks(pl, n.TimeCut, false, mode)
		}
		window := maxInt(complexReq, sumBoundary, timeCutReq)
		if preallocated {
			return window
		}
		return window + 2*realBlocks(n.Input.BufferSize())

	case plan.Repeat:
		a := nodeBlocks(pl, n.PeriodicChild, true, mode)
		b := 0
		if n.RemainderChild >= 0 {
			b = nodeBlocks(pl, n.RemainderChild, true, mode)
		}
		return maxInt(a, b)

	case plan.Range:
		m := 0
		for _, slab := range n.Slabs {
			m = maxInt(m, nodeBlocks(pl, slab, true, mode))
		}
		return m

	default:
		panic("scratch: unknown plan node kind")
	}
}

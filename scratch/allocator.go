// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package scratch

import "github.com/TEALab-org/nhls-sub000/plan"

// Layout maps every plan node index to its assigned Descriptor, plus the
// total arena size the layout requires.
type Layout struct {
	Descriptors []Descriptor
	ArenaBytes  int
}

// Allocate walks pl once to size every node's window (the accountant,
// accountant.go) and once more to turn those sizes into concrete byte
// offsets (this file), following spec.md §4.7. Every offset produced is
// a multiple of MinAlignment, so every node's buffers are 128-byte
// aligned without any node needing to round its own offset.
func Allocate(pl *plan.Plan, mode Mode) Layout {
	descriptors := make([]Descriptor, len(pl.Nodes))
	for i := range descriptors {
		descriptors[i] = unused()
	}

	total := placeNode(pl, descriptors, pl.Root, 0, true, mode)
	return Layout{Descriptors: descriptors, ArenaBytes: total * MinAlignment}
}

// placeNode assigns idx's own Descriptor (and recursively every
// descendant's) starting at byte offset base, and returns the number of
// 128-byte blocks the whole subtree rooted at idx occupies — the same
// value nodeBlocks(pl, idx, preallocated, mode) would compute, but
// produced alongside the actual offsets instead of as a separate pass,
// since the allocator needs both at once to advance sibling cursors.
func placeNode(pl *plan.Plan, out []Descriptor, idx, base int, preallocated bool, mode Mode) int {
	n := pl.Node(idx)
	switch n.Kind {
	case plan.DirectSolve:
		if preallocated {
			out[idx] = unused()
			return 0
		}
		realSize := n.Input.BufferSize() * bytesPerReal
		rb := realBlocks(n.Input.BufferSize())
		out[idx] = Descriptor{
			InputOffset: base, OutputOffset: base + rb*MinAlignment,
			RealBufferSize: realSize, ComplexOffset: -1,
		}
		return 2 * rb

	case plan.PeriodicSolve:
		offset := base
		d := unused()
		ownBlocks := 0
		if !preallocated {
			realSize := n.Input.BufferSize() * bytesPerReal
			rb := realBlocks(n.Input.BufferSize())
			d.InputOffset = offset
			d.OutputOffset = offset + rb*MinAlignment
			d.RealBufferSize = realSize
			offset += 2 * rb * MinAlignment
			ownBlocks += 2 * rb
		}

		window := maxInt(
			complexBlocks(n.Input.ComplexBufferSize(), mode),
			sumBoundaryBlocks(pl, n.BoundaryChildren, mode),
			timeCutBlocks(pl, n.TimeCut, mode),
		)
		d.ComplexOffset = offset
		d.ComplexBufferSize = n.Input.ComplexBufferSize() * bytesPerComplex
		if mode == DomainAndOp {
			d.ComplexBufferSize *= 2
		}
		out[idx] = d

		boundaryCursor := offset
		for _, childIdx := range n.BoundaryChildren {
			used := placeNode(pl, out, childIdx, boundaryCursor, false, mode)
			boundaryCursor += used * MinAlignment
		}
		// The time-cut child always gets its own real-I/O offsets (preallocated
		// is false here, never true) even though it starts at the same byte as
		// this node's own complex scratch: unlike a Repeat/Range root child,
		// which the executor calls with the caller's literal buffers and never
		// looks up in the arena at all, a time-cut child is reached through the
		// executor's ordinary recursive node lookup and needs a concrete
		// address. Reusing `offset` is still sound because the time-cut child
		// only ever runs after this node's own center-plus-boundary work has
		// finished with that span.
		if n.TimeCut >= 0 {
			placeNode(pl, out, n.TimeCut, offset, false, mode)
		}

		return ownBlocks + window

	case plan.Repeat:
		out[idx] = unused()
		placeNode(pl, out, n.PeriodicChild, base, true, mode)
		if n.RemainderChild >= 0 {
			placeNode(pl, out, n.RemainderChild, base, true, mode)
		}
		return nodeBlocks(pl, idx, true, mode)

	case plan.Range:
		out[idx] = unused()
		for _, slab := range n.Slabs {
			placeNode(pl, out, slab, base, true, mode)
		}
		return nodeBlocks(pl, idx, true, mode)

	default:
		panic("scratch: unknown plan node kind")
	}
}

func sumBoundaryBlocks(pl *plan.Plan, children []int, mode Mode) int {
	sum := 0
	for _, idx := range children {
		sum += nodeBlocks(pl, idx, false, mode)
	}
	return sum
}

func timeCutBlocks(pl *plan.Plan, timeCut int, mode Mode) int {
	if timeCut < 0 {
		return 0
	}
	// Must match accountant.go's timeCutReq: the time-cut child is always
	// addressed through the arena (never handed literal buffers), so its
	// full allocated-IO footprint is what has to fit inside this window.
	return nodeBlocks(pl, timeCut, false, mode)
}

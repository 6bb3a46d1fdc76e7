// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

// Package exec walks a Plan and actually advances a grid: the same
// recursion plan.Generate used to build the tree, driven in reverse over
// the two buffers scratch.Allocate sized for it. Every node below the
// Repeat/Range root reads its own input through the arena and scatters its
// result back into the caller's domain-sized buffers; only the root's own
// central-solve children are handed those buffers directly.
package exec

import (
	"fmt"
	"sync"

	"github.com/TEALab-org/nhls-sub000/convolve"
	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/kernelstore"
	"github.com/TEALab-org/nhls-sub000/plan"
	"github.com/TEALab-org/nhls-sub000/scratch"
	"github.com/TEALab-org/nhls-sub000/stencil"
	"github.com/TEALab-org/nhls-sub000/tvkernel"
	"github.com/TEALab-org/nhls-sub000/workerpool"
)

// Executor runs one Plan repeatedly against a fixed root domain and
// stencil, reusing the same Arena and op cache across every Apply call.
type Executor struct {
	pool      *workerpool.Pool
	chunkSize int
	st        stencil.Stencil
	root      geometry.AABB
	threads   int
	table     *kernelstore.Table
	layout    scratch.Layout
	arena     *scratch.Arena
	mode      scratch.Mode

	// ops caches the time-invariant PeriodicOp for every distinct OpId —
	// geometry and step count alone determine it, so it is built once and
	// reused for the life of the Executor, exactly the shape
	// kernelstore.Store's own doc comment predicts.
	opsMu sync.Mutex
	ops   *kernelstore.Store[*convolve.PeriodicOp]

	// trees caches, per root-period length, the tvkernel.Tree whose
	// *structure* that period implies (independent of OpId: many nested
	// PeriodicSolve nodes with distinct OpIds all query the same tree for
	// a given slab). Unlike ops, a tree's kernels are never considered
	// stable across calls — Evaluate refreshes them in place for every
	// slab's own global_time, since time-varying weights differ even
	// when geometry repeats.
	treesMu sync.Mutex
	trees   map[int]*tvkernel.Tree
}

// New builds an Executor for st over root, backed by the arena layout
// describes. mode must match the Mode layout was computed with. threads
// is the total thread budget handed to plan.Parameters when pl was
// generated, reused here to build tvkernel.Tree structures with the same
// budget the planner assumed.
func New(pool *workerpool.Pool, chunkSize int, st stencil.Stencil, root geometry.AABB, threads int, table *kernelstore.Table, layout scratch.Layout, arena *scratch.Arena, mode scratch.Mode) *Executor {
	e := &Executor{
		pool: pool, chunkSize: chunkSize, st: st, root: root, threads: threads,
		table: table, layout: layout, arena: arena, mode: mode,
		ops: kernelstore.NewStore[*convolve.PeriodicOp](table.Len()),
	}
	if stencil.IsTimeVarying(st) {
		e.trees = make(map[int]*tvkernel.Tree)
	}
	return e
}

// Apply advances in by pl's total step count, starting at globalTime, and
// writes the result into out. in and out must each be sized
// root.BufferSize() and must not alias each other. Both serve as working
// buffers (successive central solves ping-pong between them), so in's
// contents are not preserved.
func (e *Executor) Apply(pl *plan.Plan, in, out []float64, globalTime int) {
	root := pl.Node(pl.Root)
	switch root.Kind {
	case plan.Repeat:
		children := make([]int, 0, root.Count+1)
		for i := 0; i < root.Count; i++ {
			children = append(children, root.PeriodicChild)
		}
		if root.RemainderChild >= 0 {
			children = append(children, root.RemainderChild)
		}
		e.runSequence(pl, children, in, out, globalTime)
	case plan.Range:
		e.runSequence(pl, root.Slabs, in, out, globalTime)
	default:
		panic(fmt.Sprintf("exec: plan root must be Repeat or Range, got %v", root.Kind))
	}
}

// runSequence executes each of children (always root-level central-solve
// PeriodicSolve nodes) in order, ping-ponging between in and out since
// each one both reads and rewrites the entire root domain. curIsIn tracks
// which of the two buffers holds the current state; a final reconciling
// copy lands the result in out regardless of how many steps ran — the
// `ap_solver` convention of swapping roles after every step, with one more
// swap folded in only when the parity needs it (see DESIGN.md's Open
// Question #1).
func (e *Executor) runSequence(pl *plan.Plan, children []int, in, out []float64, globalTime int) {
	curIsIn := true
	t := globalTime
	for _, idx := range children {
		if curIsIn {
			e.execCentral(pl, idx, in, out, t)
		} else {
			e.execCentral(pl, idx, out, in, t)
		}
		t += pl.Node(idx).Steps
		curIsIn = !curIsIn
	}
	if curIsIn {
		copy(out, in)
	}
}

// execCentral runs one root-level central-solve node directly against the
// caller's own domain-sized buffers — the one node in a Plan with no
// arena-backed real I/O of its own, matching scratch.Allocate's
// placeNode, which gives this node a ComplexOffset but leaves its
// InputOffset/OutputOffset unused. Its
// own Steps is, by construction, the slab period every descendant's
// OpDescriptor's (step_min, step_max) range is relative to.
func (e *Executor) execCentral(pl *plan.Plan, idx int, in, out []float64, t int) {
	n := pl.Node(idx)
	slabPeriod := n.Steps
	if stencil.IsTimeVarying(e.st) {
		e.treeFor(slabPeriod).Evaluate(e.pool, e.chunkSize, t)
	}
	op := e.periodicOp(n, slabPeriod)
	desc := e.layout.Descriptors[idx]
	scratchC := e.arena.Complex(desc.ComplexOffset, n.Input.ComplexBufferSize())
	op.Apply(e.pool, e.chunkSize, in, out, scratchC)

	// generateCentral never sets TimeCut (only generateFrustum's nested
	// PeriodicSolve nodes do), so there is no time-cut child to recurse
	// into here.
	e.runBoundary(pl, n, in, out, t, slabPeriod)
}

// runBoundary fans n's boundary children out across the pool, each
// reading from source and scattering into dest — disjoint output AABBs
// by construction, so no synchronization beyond the join is needed.
func (e *Executor) runBoundary(pl *plan.Plan, n *plan.Node, source, dest []float64, t, slabPeriod int) {
	if len(n.BoundaryChildren) == 0 {
		return
	}
	tasks := make([]func(), len(n.BoundaryChildren))
	for i, childIdx := range n.BoundaryChildren {
		ci := childIdx
		tasks[i] = func() { e.execNode(pl, ci, source, dest, t, slabPeriod) }
	}
	e.pool.ScopedSpawn(tasks...)
}

// execNode runs any non-root plan node: it reads its own Input region out
// of source (indexed in e.root's coordinate system) and scatters its
// Output region's result into dest. slabPeriod is threaded down
// unchanged from the enclosing execCentral call, since a time-varying
// node's OpDescriptor range is relative to that slab's own start, not to
// this node's own position in the recursion.
func (e *Executor) execNode(pl *plan.Plan, idx int, source, dest []float64, t, slabPeriod int) {
	n := pl.Node(idx)
	switch n.Kind {
	case plan.DirectSolve:
		e.execDirect(pl, idx, n, source, dest, t)
	case plan.PeriodicSolve:
		e.execNestedPeriodic(pl, idx, n, source, dest, t, slabPeriod)
	default:
		panic(fmt.Sprintf("exec: unexpected node kind %v below the plan root", n.Kind))
	}
}

// periodicOp returns the PeriodicOp node n should apply this call. For a
// time-invariant stencil, n's OpId alone determines the operator, so it
// is built once and cached forever. For a time-varying stencil, the
// kernel depends on absolute time too, but by the time periodicOp is
// called slabPeriod's tree has already been Evaluated for the current
// global_time (execCentral does this once per slab, before any
// descendant runs), so only the relative (step_min, step_max) range n's
// own OpDescriptor carries is needed to look up the right node (zero for
// a root-level central-solve node, which always covers the tree's full
// root range) — the operator itself is rebuilt fresh every call, never
// cached, since the same range means different weights on every slab.
func (e *Executor) periodicOp(n *plan.Node, slabPeriod int) *convolve.PeriodicOp {
	if !stencil.IsTimeVarying(e.st) {
		if op := e.ops.Get(n.OpId); op != nil {
			return op
		}
		e.opsMu.Lock()
		defer e.opsMu.Unlock()
		if op := e.ops.Get(n.OpId); op != nil {
			return op
		}
		op, err := convolve.NewPeriodicOp(e.pool, e.chunkSize, n.Input, e.st, n.Steps)
		if err != nil {
			panic(fmt.Sprintf("exec: building periodic op: %v", err))
		}
		e.ops.Set(n.OpId, op)
		return op
	}

	tree := e.treeFor(slabPeriod)
	desc := e.table.Descriptor(n.OpId)
	var node *tvkernel.Node
	if desc.TimeVarying {
		found, ok := tree.Find(desc.StepMin, desc.StepMax)
		if !ok {
			panic(fmt.Sprintf("exec: no tvkernel node for relative range [%d,%d)", desc.StepMin, desc.StepMax))
		}
		node = found
	} else {
		node = tree.Root()
	}
	if node.Kind == tvkernel.Full {
		// The planner only ever emits a PeriodicSolve node once Shrink
		// confirms a combined kernel fits the node's own Input box; a
		// Full tree node here means the plan and the tree disagree about
		// that, which is a planner/tree mismatch, not a runtime state to
		// recover from.
		panic(fmt.Sprintf("exec: tvkernel node for range [%d,%d) is Full (no composed kernel) but the plan requires one", node.T0, node.T1))
	}

	kernel := tvkernel.Reembed(node.Box, n.Input, node.Slopes, node.Real)
	op, err := convolve.NewPeriodicOpFromKernel(e.pool, e.chunkSize, n.Input, kernel, n.Steps)
	if err != nil {
		panic(fmt.Sprintf("exec: building periodic op from kernel: %v", err))
	}
	return op
}

// treeFor returns (building and caching if needed) the tvkernel.Tree for
// the given root-period length.
func (e *Executor) treeFor(period int) *tvkernel.Tree {
	e.treesMu.Lock()
	defer e.treesMu.Unlock()
	if tree, ok := e.trees[period]; ok {
		return tree
	}
	tree, err := tvkernel.NewTree(e.st, e.root, period, e.threads)
	if err != nil {
		panic(fmt.Sprintf("exec: building tvkernel tree for period %d: %v", period, err))
	}
	e.trees[period] = tree
	return tree
}

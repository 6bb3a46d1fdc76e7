// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package exec

import "github.com/TEALab-org/nhls-sub000/plan"

// execNestedPeriodic runs one non-root PeriodicSolve node: it gathers n's
// own Input region out of source into an arena-backed local buffer, runs
// the periodic convolution operator from it into a second arena-backed
// buffer, scatters n.Output's cells
// into dest, fans its own boundary children out concurrently, and —
// since the time-cut child's own Input AABB is, by construction, exactly
// this node's own Output AABB — recurses into it reading from dest
// rather than source.
func (e *Executor) execNestedPeriodic(pl *plan.Plan, idx int, n *plan.Node, source, dest []float64, t, slabPeriod int) {
	desc := e.layout.Descriptors[idx]
	localIn := e.arena.Real(desc.InputOffset, n.Input.BufferSize())
	localOut := e.arena.Real(desc.OutputOffset, n.Input.BufferSize())
	scratchC := e.arena.Complex(desc.ComplexOffset, n.Input.ComplexBufferSize())

	copyFromSuperset(e.pool, e.chunkSize, e.root, source, n.Input, localIn)

	op := e.periodicOp(n, slabPeriod)
	op.Apply(e.pool, e.chunkSize, localIn, localOut, scratchC)

	copyToSuperset(e.pool, e.chunkSize, e.root, dest, n.Input, n.Output, localOut)

	e.runBoundary(pl, n, source, dest, t, slabPeriod)

	if n.TimeCut >= 0 {
		e.execNode(pl, n.TimeCut, dest, dest, t+n.Steps, slabPeriod)
	}
}

// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/TEALab-org/nhls-sub000/direct"
	"github.com/TEALab-org/nhls-sub000/plan"
)

// execDirect runs one DirectSolve leaf: it gathers n's own Input region
// out of source into an arena-backed ping-pong buffer pair, hands that
// pair to direct.Solve (package direct already handles zero-BC reads
// against e.root itself), and scatters the result's n.Output cells into
// dest.
func (e *Executor) execDirect(pl *plan.Plan, idx int, n *plan.Node, source, dest []float64, t int) {
	desc := e.layout.Descriptors[idx]
	bufA := e.arena.Real(desc.InputOffset, n.Input.BufferSize())
	bufB := e.arena.Real(desc.OutputOffset, n.Input.BufferSize())

	copyFromSuperset(e.pool, e.chunkSize, e.root, source, n.Input, bufA)

	result := direct.Solve(e.pool, e.chunkSize, direct.Params{
		Stencil: e.st, Root: e.root, Input: n.Input, Output: n.Output,
		Mask: n.Mask, Steps: n.Steps, StartTime: t,
	}, bufA, bufB)

	copyToSuperset(e.pool, e.chunkSize, e.root, dest, n.Input, n.Output, result)
}

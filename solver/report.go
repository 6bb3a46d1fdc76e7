// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package solver

import (
	"fmt"
	"io"

	"github.com/TEALab-org/nhls-sub000/plan"
	"github.com/TEALab-org/nhls-sub000/scratch"
)

func kindName(k plan.Kind) string {
	switch k {
	case plan.PeriodicSolve:
		return "PeriodicSolve"
	case plan.DirectSolve:
		return "DirectSolve"
	case plan.Repeat:
		return "Repeat"
	case plan.Range:
		return "Range"
	default:
		return "Unknown"
	}
}

// PrintReport writes a human-readable summary of the plan size and arena
// size: total node count, a per-kind histogram, and the arena's total
// byte footprint — the breakdown the original's print_report gives,
// reproduced here since spec.md §6 only requires "human-readable plan
// size and arena size" without fixing a format.
func (s *Solver) PrintReport(w io.Writer) {
	if s.pl == nil {
		fmt.Fprintln(w, "solver: zero-step plan (no-op)")
		return
	}
	fmt.Fprintf(w, "plan: %d nodes\n", len(s.pl.Nodes))
	for _, k := range []plan.Kind{plan.Repeat, plan.Range, plan.PeriodicSolve, plan.DirectSolve} {
		idxs := s.pl.NodesOfKind(k)
		if len(idxs) == 0 {
			continue
		}
		bytes := 0
		for _, idx := range idxs {
			bytes += nodeBytes(s.layout.Descriptors[idx])
		}
		fmt.Fprintf(w, "  %-14s count=%-6d bytes=%d\n", kindName(k), len(idxs), bytes)
	}
	fmt.Fprintf(w, "arena: %d bytes\n", s.layout.ArenaBytes)
}

// nodeBytes sums a single node's own attributed arena footprint: its real
// input/output buffers (if it owns any — a Repeat/Range root and a
// root-level central-solve node, which works on the caller's own buffers,
// are the only cases with no real bytes of their own) plus its complex
// scratch.
func nodeBytes(d scratch.Descriptor) int {
	bytes := d.ComplexBufferSize
	if d.InputOffset >= 0 {
		bytes += d.RealBufferSize
	}
	if d.OutputOffset >= 0 {
		bytes += d.RealBufferSize
	}
	return bytes
}

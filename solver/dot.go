// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package solver

import (
	"fmt"
	"io"

	"github.com/TEALab-org/nhls-sub000/plan"
)

// ToDotFile renders the Solver's plan as a Graphviz DOT graph: one vertex
// per node (kind, extents, step count), edges from a PeriodicSolve node
// to each of its boundary children and its time-cut child, and edges
// from the Repeat/Range root to the central-solve subtrees it sequences.
// Diagnostic only — no stability guarantee on vertex/edge labeling across
// versions of this package.
func (s *Solver) ToDotFile(w io.Writer) error {
	if s.pl == nil {
		_, err := fmt.Fprintln(w, "digraph plan {}")
		return err
	}

	if _, err := fmt.Fprintln(w, "digraph plan {"); err != nil {
		return err
	}
	for i, n := range s.pl.Nodes {
		if _, err := fmt.Fprintf(w, "  n%d [label=%q];\n", i, nodeLabel(i, &n)); err != nil {
			return err
		}
	}
	for i, n := range s.pl.Nodes {
		switch n.Kind {
		case plan.PeriodicSolve:
			for _, c := range n.BoundaryChildren {
				if err := edge(w, i, c, "boundary"); err != nil {
					return err
				}
			}
			if n.TimeCut >= 0 {
				if err := edge(w, i, n.TimeCut, "time_cut"); err != nil {
					return err
				}
			}
		case plan.Repeat:
			if err := edge(w, i, n.PeriodicChild, "periodic"); err != nil {
				return err
			}
			if n.RemainderChild >= 0 {
				if err := edge(w, i, n.RemainderChild, "remainder"); err != nil {
					return err
				}
			}
		case plan.Range:
			for j, c := range n.Slabs {
				if err := edge(w, i, c, fmt.Sprintf("slab_%d", j)); err != nil {
					return err
				}
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func edge(w io.Writer, from, to int, label string) error {
	_, err := fmt.Fprintf(w, "  n%d -> n%d [label=%q];\n", from, to, label)
	return err
}

func nodeLabel(idx int, n *plan.Node) string {
	kind := kindName(n.Kind)
	switch n.Kind {
	case plan.PeriodicSolve, plan.DirectSolve:
		return fmt.Sprintf("#%d %s extents=%v steps=%d", idx, kind, n.Input.Extents(), n.Steps)
	default:
		return fmt.Sprintf("#%d %s steps=%d", idx, kind, n.Steps)
	}
}

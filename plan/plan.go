// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

// Package plan builds and represents the aperiodic solver's execution
// plan: a flat vector of nodes, referenced by index rather than pointer,
// produced by a top-down recursive decomposition of the root domain into
// one central periodic solve plus boundary-correcting sub-frustums that
// bottom out in direct solves once a region gets too small or too close
// to the domain edge.
package plan

import (
	"fmt"

	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/kernelstore"
	"github.com/TEALab-org/nhls-sub000/stencil"
	"github.com/samber/lo"
)

// Kind is the plan node's tagged variant. A sum type, not an interface:
// every executor site switches on all four cases and the kinds share no
// behavior worth factoring into a common method set.
type Kind int

const (
	PeriodicSolve Kind = iota
	DirectSolve
	Repeat
	Range
)

// Node is one entry in a Plan's flat node vector. Fields not meaningful
// for a given Kind are left zero; which fields apply is determined
// entirely by Kind.
type Node struct {
	Kind    Kind
	Input   geometry.AABB
	Output  geometry.AABB
	Steps   int
	Threads int

	// PeriodicSolve only.
	OpId kernelstore.OpId
	// BoundaryChildren holds the root node index of each boundary
	// sub-frustum's plan subtree, in the order generate_frustum visited
	// them. The spec describes these as "a contiguous range of child
	// boundary nodes"; a nested boundary subtree's own root is not
	// necessarily index-adjacent to its siblings' roots once recursion is
	// involved, so an explicit index slice is the direct Go realization
	// of the same invariant (disjoint output AABBs, independently
	// executable) rather than a reconstructible range — see DESIGN.md.
	BoundaryChildren []int
	// TimeCut is the child node index for the residual
	// F.steps-k sub-frustum, or -1 if F.steps == k exactly.
	TimeCut int

	// DirectSolve only.
	Mask geometry.SlopedMask

	// Repeat only (root node of a time-invariant plan).
	Count          int
	PeriodicChild  int
	RemainderChild int // -1 if steps % period == 0

	// Range only (root node of a time-varying plan): a sequence of
	// central-solve node indices, one per root period slab, executed in
	// order.
	Slabs []int
}

// Plan is a flat node vector plus a root index.
type Plan struct {
	Nodes []Node
	Root  int
}

// Node looks up a plan node by index.
func (p *Plan) Node(idx int) *Node { return &p.Nodes[idx] }

// NodesOfKind returns the indices of every node of the given kind, in
// plan order. Used by print_report's per-kind histogram.
func (p *Plan) NodesOfKind(k Kind) []int {
	all := make([]int, len(p.Nodes))
	for i := range all {
		all[i] = i
	}
	return lo.Filter(all, func(idx int, _ int) bool { return p.Nodes[idx].Kind == k })
}

// BoundaryOutputs returns the output AABB of each of n's boundary
// children, in order — the disjoint sub-regions the executor's scoped
// boundary-correction tasks each own.
func (p *Plan) BoundaryOutputs(n *Node) []geometry.AABB {
	return lo.Map(n.BoundaryChildren, func(idx int, _ int) geometry.AABB {
		return p.Nodes[idx].Output
	})
}

// Descendants flattens n's boundary children and, if present, its
// time-cut child into one slice of node indices — every node a periodic
// solve's execution must reach, besides itself.
func (p *Plan) Descendants(n *Node) []int {
	groups := [][]int{n.BoundaryChildren}
	if n.TimeCut >= 0 {
		groups = append(groups, []int{n.TimeCut})
	}
	return lo.Flatten(groups)
}

// Parameters configures plan generation (spec.md §4.5, §6).
type Parameters struct {
	// Cutoff: sub-problems whose smallest side is <= Cutoff are forced to
	// direct solve.
	Cutoff int
	// Ratio: target fraction of the smallest side remaining after one
	// periodic solve, in (0,1).
	Ratio float64
	// Threads: total thread budget handed to the root node; each level
	// splits it among its children.
	Threads int
}

// Planner holds the state threaded through plan generation: the node
// vector under construction, the op table collecting distinct FFT-kernel
// descriptors, and the stencil/slopes/parameters driving the recursion.
type Planner struct {
	st     stencil.Stencil
	slopes geometry.Slopes
	params Parameters
	table  *kernelstore.Table
	nodes  []Node
}

// Generate runs the planner over root for the given total step count and
// returns the resulting Plan and op table. steps == 0 is rejected: a
// zero-step apply is the caller's no-op to skip, not a plan to build.
func Generate(st stencil.Stencil, root geometry.AABB, steps int, params Parameters) (*Plan, *kernelstore.Table, geometry.Slopes, error) {
	if steps <= 0 {
		return nil, nil, geometry.Slopes{}, fmt.Errorf("plan: steps must be positive, got %d", steps)
	}
	if minSide(root) <= params.Cutoff {
		return nil, nil, geometry.Slopes{}, fmt.Errorf("plan: root's smallest side (%d) is already <= cutoff (%d)", minSide(root), params.Cutoff)
	}

	slopes := st.Slopes()
	p := &Planner{st: st, slopes: slopes, params: params, table: kernelstore.NewTable()}

	period, err := p.generateCentral(root, steps)
	if err != nil {
		return nil, nil, geometry.Slopes{}, err
	}
	if period <= 0 {
		return nil, nil, geometry.Slopes{}, fmt.Errorf("plan: central solve advanced zero steps")
	}
	centralIdx := len(p.nodes) - 1

	rootNode, err := p.wrapRoot(root, steps, period, centralIdx)
	if err != nil {
		return nil, nil, geometry.Slopes{}, err
	}
	rootIdx := p.append(rootNode)

	return &Plan{Nodes: p.nodes, Root: rootIdx}, p.table, slopes, nil
}

func (p *Planner) append(n Node) int {
	idx := len(p.nodes)
	p.nodes = append(p.nodes, n)
	return idx
}

func minSide(b geometry.AABB) int {
	e := b.Extents()
	m := e[0]
	for i := 1; i < b.Dim; i++ {
		if e[i] < m {
			m = e[i]
		}
	}
	return m
}

// generateCentral implements the spec's generate_central: shrinks root by
// as many periodic steps as possible (up to maxSteps), recursively plans
// the boundary ring left over, and emits the PeriodicSolve node for the
// central shrink. Returns the number of steps it advanced (the root
// period, reused by the Repeat/Range wrapper).
func (p *Planner) generateCentral(root geometry.AABB, maxSteps int) (int, error) {
	if minSide(root) <= p.params.Cutoff {
		return 0, fmt.Errorf("plan: root shrank below cutoff during central-solve planning")
	}

	k, inner := root.Shrink(p.params.Ratio, p.slopes, maxSteps)
	if k <= 0 {
		return 0, fmt.Errorf("plan: central shrink produced zero steps (root too small for ratio/cutoff/slopes)")
	}

	opId := p.table.Intern(kernelstore.OpDescriptor{
		Dim: root.Dim, Extents: root.Extents(), Steps: k, ThreadBudget: p.params.Threads,
	})

	pieces := geometry.Frustum{Output: root, Root: root, RecursionDim: -1}.Decompose(root, inner, k)
	boundaryThreads := max(1, ceilDiv(p.params.Threads, len(pieces)))
	boundaryChildren := make([]int, 0, len(pieces))
	for _, f := range pieces {
		idx, err := p.generateFrustum(f, 0, boundaryThreads)
		if err != nil {
			return 0, err
		}
		boundaryChildren = append(boundaryChildren, idx)
	}

	p.append(Node{
		Kind: PeriodicSolve, Input: root, Output: inner, Steps: k, Threads: p.params.Threads,
		OpId: opId, BoundaryChildren: boundaryChildren, TimeCut: -1,
	})
	return k, nil
}

// generateFrustum implements generate_frustum: grows F's input AABB,
// shrinks it again by as many steps as F.Steps allows, and either bottoms
// out in a DirectSolve (the shrink produced nothing, or the grown region
// is already small enough) or recurses into a time-cut child for the
// remainder plus one child per boundary piece of F's own decomposition.
// Returns the index of the node it appended (the subtree's root).
func (p *Planner) generateFrustum(f geometry.Frustum, relTime, threads int) (int, error) {
	in := f.InputAABB(p.slopes)
	mask := f.SlopedMask()
	k, inner := in.ShrinkMasked(p.params.Ratio, p.slopes, f.Steps, mask)

	if k == 0 || minSide(in) <= p.params.Cutoff {
		idx := p.append(Node{
			Kind: DirectSolve, Input: in, Output: f.Output, Mask: f.SlopedMask(),
			Steps: f.Steps, Threads: threads,
		})
		return idx, nil
	}

	opId := p.table.Intern(kernelstore.OpDescriptor{
		Dim: in.Dim, Extents: in.Extents(), Steps: k, ThreadBudget: threads,
		TimeVarying: stencil.IsTimeVarying(p.st), StepMin: relTime, StepMax: relTime + k,
	})

	timeCutIdx := -1
	if f.Steps > k {
		cut, ok := f.TimeCut(k)
		if ok {
			idx, err := p.generateFrustum(cut, relTime+k, threads)
			if err != nil {
				return 0, err
			}
			timeCutIdx = idx
		}
	}

	pieces := f.Decompose(in, inner, k)
	boundaryThreads := max(1, ceilDiv(threads, len(pieces)))
	boundaryChildren := make([]int, 0, len(pieces))
	for _, child := range pieces {
		childIdx, err := p.generateFrustum(child, relTime, boundaryThreads)
		if err != nil {
			return 0, err
		}
		boundaryChildren = append(boundaryChildren, childIdx)
	}

	idx := p.append(Node{
		Kind: PeriodicSolve, Input: in, Output: inner, Steps: k, Threads: threads,
		OpId: opId, BoundaryChildren: boundaryChildren, TimeCut: timeCutIdx,
	})
	return idx, nil
}

// wrapRoot builds the Repeat (time-invariant stencil) or Range
// (time-varying stencil) node that repeats the central-solve subtree
// enough times to cover the full requested step count.
func (p *Planner) wrapRoot(root geometry.AABB, steps, period, centralIdx int) (Node, error) {
	n := steps / period
	rem := steps % period

	if !stencil.IsTimeVarying(p.st) {
		remainderIdx := -1
		if rem > 0 {
			k, err := p.generateCentral(root, rem)
			if err != nil {
				return Node{}, err
			}
			if k != rem {
				return Node{}, fmt.Errorf("plan: remainder central-solve advanced %d steps, want exactly %d", k, rem)
			}
			remainderIdx = len(p.nodes) - 1
		}
		return Node{
			Kind: Repeat, Steps: steps, Threads: p.params.Threads,
			Count: n, PeriodicChild: centralIdx, RemainderChild: remainderIdx,
		}, nil
	}

	slabs := []int{centralIdx}
	for i := 1; i < n; i++ {
		if _, err := p.generateCentral(root, period); err != nil {
			return Node{}, err
		}
		slabs = append(slabs, len(p.nodes)-1)
	}
	if rem > 0 {
		if _, err := p.generateCentral(root, rem); err != nil {
			return Node{}, err
		}
		slabs = append(slabs, len(p.nodes)-1)
	}
	return Node{Kind: Range, Steps: steps, Threads: p.params.Threads, Slabs: slabs}, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

// Package tvkernel builds the time-varying kernel composition tree: given a
// stencil whose weights change every step, it produces a single
// circular-convolution kernel per (step_min, step_max) sub-range by
// recursively convolving per-step stencil evaluations together, bottom-up,
// in a wrap-box sized to the combined reach of the steps it covers.
package tvkernel

import (
	"fmt"
	"math"

	"github.com/TEALab-org/nhls-sub000/convolve"
	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/stencil"
	"github.com/TEALab-org/nhls-sub000/workerpool"
)

// Kind distinguishes the four node shapes the design calls for. A tagged
// variant rather than an interface with four implementations, because the
// executor (and Evaluate below) switches on all four cases and the kinds
// share no behavior worth factoring into a common method set.
type Kind int

const (
	// Leaf1 is a single time-point stencil evaluation: every one-step leaf
	// of the tree, and the whole tree when the covered range is exactly one
	// step.
	Leaf1 Kind = iota
	// Leaf2 pre-composes two adjacent time-point evaluations directly.
	Leaf2
	// Convolve composes two already-built sub-kernels.
	Convolve
	// Full marks a range whose combined slopes would need a wrap-box larger
	// than the root domain: no single kernel is built here. Left and Right
	// are still built and evaluated, but the executor does not run them; it
	// panics if a plan asks it for a Full node's kernel.
	Full
)

// Node is one entry in the tree, always built bottom-up so that by the
// time a node is reached in Tree.nodes every index it names as a child is
// already valid.
type Node struct {
	Kind        Kind
	T0, T1      int // relative step range [T0,T1) this node covers
	Level       int
	Threads     int
	Box         geometry.AABB // local (Min==0) wrap-box this node's kernel lives in
	Slopes      geometry.Slopes
	Left, Right int // child indices into Tree.nodes, -1 if none
	Real        []float64
	transformer *convolve.Transformer // nil for Leaf1 and Full
}

// Tree is the composition tree for one stencil over one fixed-length
// period [0,period). Its shape (node kinds, boxes, child links, thread
// budgets) depends only on the stencil's slopes, the root domain, and the
// period, so it is built once per solver and re-evaluated — cheaply —
// every time the executor advances to a new slab's global_time.
type Tree struct {
	nodes  []*Node
	root   int
	byKey  map[[2]int]int // (T0,T1) -> node index, for plan lookups
	st     stencil.Stencil
	domain geometry.AABB
	period int
}

// NewTree builds the tree structure for st over [0,period) inside domain,
// with threads the total thread budget to spread across tree levels.
func NewTree(st stencil.Stencil, domain geometry.AABB, period, threads int) (*Tree, error) {
	if period < 1 {
		return nil, fmt.Errorf("tvkernel: period must be positive, got %d", period)
	}

	t := &Tree{byKey: make(map[[2]int]int), st: st, domain: domain, period: period}
	base := st.Slopes()
	dim := st.Dim()

	var build func(t0, t1, level int) (int, error)
	build = func(t0, t1, level int) (int, error) {
		n := t1 - t0
		slopes := scaleSlopes(base, n)
		box := wrapBox(dim, slopes)

		if n == 1 {
			node := &Node{Kind: Leaf1, T0: t0, T1: t1, Level: level, Box: box, Slopes: slopes,
				Left: -1, Right: -1, Real: make([]float64, box.BufferSize())}
			return t.append(node), nil
		}

		// n >= 2: build (or recall) the two halves, then attempt to compose
		// them into one kernel. n == 2's halves are the two raw time-point
		// evaluations (Leaf1(t0), Leaf1(t0+1)) — the composed node is named
		// Leaf2 in that case purely to match the design's vocabulary;
		// structurally it is the same combine-two-children operation as
		// every Convolve node above it.
		mid := t0 + n/2
		li, err := build(t0, mid, level+1)
		if err != nil {
			return 0, err
		}
		ri, err := build(mid, t1, level+1)
		if err != nil {
			return 0, err
		}

		node := &Node{T0: t0, T1: t1, Level: level, Box: box, Slopes: slopes, Left: li, Right: ri}
		if fitsWithin(box, domain) {
			tr, err := convolve.NewTransformer(box)
			if err != nil {
				return 0, fmt.Errorf("tvkernel: composing [%d,%d): %w", t0, t1, err)
			}
			if n == 2 {
				node.Kind = Leaf2
			} else {
				node.Kind = Convolve
			}
			node.transformer = tr
			node.Real = make([]float64, box.BufferSize())
		} else {
			node.Kind = Full
		}
		return t.append(node), nil
	}

	root, err := build(0, period, 0)
	if err != nil {
		return nil, err
	}
	t.root = root
	t.assignThreadBudgets(threads)
	return t, nil
}

func (t *Tree) append(n *Node) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, n)
	t.byKey[[2]int{n.T0, n.T1}] = idx
	return idx
}

func (t *Tree) assignThreadBudgets(threads int) {
	counts := map[int]int{}
	for _, n := range t.nodes {
		counts[n.Level]++
	}
	for _, n := range t.nodes {
		n.Threads = max(1, int(math.Ceil(float64(threads)/float64(counts[n.Level]))))
	}
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node { return t.nodes[t.root] }

// Find looks up the node covering the exact relative range [t0,t1), as
// queried by a periodic-solve plan node's (step_min, step_max) key. The
// planner is responsible for only ever requesting ranges that land on a
// tree bisection boundary; a miss here means the plan and the tree
// disagree about the period's split points, which is a planner bug.
func (t *Tree) Find(t0, t1 int) (*Node, bool) {
	idx, ok := t.byKey[[2]int{t0, t1}]
	if !ok {
		return nil, false
	}
	return t.nodes[idx], true
}

// Node looks up a node by its tree-internal index (Left/Right child
// references use these).
func (t *Tree) Node(idx int) *Node { return t.nodes[idx] }

// Evaluate recomputes every node's real-space kernel for the period
// starting at globalTime, deepest node first (Tree.nodes is already in a
// valid bottom-up order: children are always appended before their
// parent). Leaf1 nodes write a fresh stencil evaluation directly into
// their own Real buffer; Leaf2 and Convolve nodes clear and refill theirs
// via forward-FFT-both/multiply/inverse-FFT/normalize. Full nodes do
// nothing themselves — their children still get evaluated, though the
// executor has no path that runs a Full node's halves.
func (t *Tree) Evaluate(pool *workerpool.Pool, chunkSize, globalTime int) {
	offsets := t.st.Offsets()

	for _, node := range t.nodes {
		switch node.Kind {
		case Leaf1:
			convolve.CirculantKernel(node.Box, offsets, t.st.Weights(globalTime+node.T0), node.Real)

		case Leaf2, Convolve:
			left, right := t.nodes[node.Left], t.nodes[node.Right]
			lr := reembed(left.Box, node.Box, left.Slopes, left.Real)
			rr := reembed(right.Box, node.Box, right.Slopes, right.Real)
			combineInto(pool, chunkSize, node.transformer, lr, rr, node.Real)

		case Full:
			// No kernel of its own; Left and Right were already evaluated above.
		}
	}
}

// combineInto runs the shared Leaf2/Convolve combination step: forward
// transform both real-space kernels, multiply pointwise in the frequency
// domain (convolution, not the s-th-power raise PeriodicOp does), inverse
// transform, and normalize into dst.
func combineInto(pool *workerpool.Pool, chunkSize int, tr *convolve.Transformer, a, b, dst []float64) {
	fa := tr.Forward(pool, chunkSize, a, nil)
	fb := tr.Forward(pool, chunkSize, b, nil)
	combined := make([]complex128, len(fa))
	pool.ParallelChunks(len(combined), chunkSize, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			combined[i] = fa[i] * fb[i]
		}
	})
	tr.Inverse(pool, chunkSize, combined, dst)
	tr.Normalize(pool, chunkSize, dst, tr.Box().BufferSize())
}

func scaleSlopes(base geometry.Slopes, n int) geometry.Slopes {
	var s geometry.Slopes
	for d := range base {
		s[d][0] = base[d][0] * n
		s[d][1] = base[d][1] * n
	}
	return s
}

// wrapBox builds the local (Min==0) box a circulant kernel of the given
// combined slopes lives in: one cell per reachable offset in each
// direction, plus the center cell.
func wrapBox(dim int, slopes geometry.Slopes) geometry.AABB {
	max := make([]int, dim)
	min := make([]int, dim)
	for d := 0; d < dim; d++ {
		max[d] = slopes[d][0] + slopes[d][1]
	}
	return geometry.New(dim, min, max)
}

func fitsWithin(box, domain geometry.AABB) bool {
	be, de := box.Extents(), domain.Extents()
	for d := 0; d < box.Dim; d++ {
		if be[d] > de[d] {
			return false
		}
	}
	return true
}

// Reembed re-expresses a node's dense kernel, built in its own (Min==0)
// wrap-box sized to nodeSlopes, inside a larger box of the caller's
// choosing — e.g. the solver's own plan-node input box, which a tree
// node's wrap-box generally only covers a small corner of. Exported for
// the executor, which needs exactly this operation to turn a tvkernel
// node's composed kernel into a circulant kernel convolve.PeriodicOp can
// build an operator from.
func Reembed(nodeBox, targetBox geometry.AABB, nodeSlopes geometry.Slopes, real []float64) []float64 {
	return reembed(nodeBox, targetBox, nodeSlopes, real)
}

// reembed re-expresses a child's dense kernel, built in its own
// (Min==0)-local wrap-box sized to childSlopes, inside parentBox (a
// larger wrap-box covering the combined range). Every nonzero cell is
// decoded back to the signed offset it represents, then re-placed at
// parentBox.PeriodicCoord(parentBox.Min - offset) — the same
// mirroring convolve.CirculantKernel uses for a sparse offset list,
// generalized here to a dense array since a composed kernel no longer
// carries an explicit offset/weight pair list.
func reembed(childBox, parentBox geometry.AABB, childSlopes geometry.Slopes, real []float64) []float64 {
	out := make([]float64, parentBox.BufferSize())
	childExtents := childBox.Extents()
	coord := make([]int, childBox.Dim)
	var offset [geometry.MaxDim]int
	var parentCoord [geometry.MaxDim]int

	for i, v := range real {
		if v == 0 {
			continue
		}
		childBox.LinearToCoord(i, coord)
		for d := 0; d < childBox.Dim; d++ {
			c := coord[d]
			if c <= childSlopes[d][0] {
				offset[d] = -c
			} else {
				offset[d] = childExtents[d] - c
			}
		}
		for d := 0; d < parentBox.Dim; d++ {
			parentCoord[d] = parentBox.Min[d] - offset[d]
		}
		pos := parentBox.PeriodicCoord(parentCoord[:parentBox.Dim])
		lin := parentBox.CoordToLinear(pos[:parentBox.Dim])
		out[lin] += v
	}
	return out
}

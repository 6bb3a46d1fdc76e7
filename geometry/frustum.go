// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package geometry

// Frustum describes a trapezoidal space-time sub-region: an output AABB
// that must be advanced Steps steps, plus the Root domain it lives in (used
// to tell which of its faces sit against the actual domain boundary —
// those are flat, never grown — versus interior faces, which are sloped
// and grow with every step of lookback required). RecursionDim and Side
// name the (dimension, side) this frustum was itself peeled from — the
// descriptor a boundary-correction node carries through the planner's
// recursion, matching the original frustum decomposition scheme at
// original_source/src/fft_solver/ap_frustrum.rs. RecursionDim is -1 for the
// root frustum a central solve itself decomposes, which hasn't peeled any
// dimension yet; the pieces its decomposition returns carry the dimension
// they were peeled from.
type Frustum struct {
	Output       AABB
	Root         AABB
	RecursionDim int
	Side         Side
	Steps        int
}

// SlopedMask reports, per dimension and face, whether that face of Output
// is interior to Root (sloped, grows with steps) as opposed to coincident
// with Root's own boundary on that face (flat, zero-BC applies there
// directly).
func (f Frustum) SlopedMask() SlopedMask {
	var m SlopedMask
	for i := 0; i < f.Output.Dim; i++ {
		m[i][0] = f.Output.Min[i] > f.Root.Min[i]
		m[i][1] = f.Output.Max[i] < f.Root.Max[i]
	}
	return m
}

// InputAABB grows Output outward by Steps*slopes on every sloped face,
// leaving flat faces untouched. The design invariant (checked here) is
// that the grown box never leaves Root.
func (f Frustum) InputAABB(slopes Slopes) AABB {
	in := f.Output.GrowBy(f.Steps, slopes, f.SlopedMask())
	if !f.Root.ContainsAABB(in) {
		panic("geometry: frustum input AABB escapes root domain")
	}
	return in
}

// Decompose peels the ring in \ inner into child frustums, one per
// (dimension, side) piece of in.peelRing(inner, f.RecursionDim+1) — each
// carrying childSteps and the (dim, side) tag it was cut from. Starting
// the peel just past f's own RecursionDim (rather than at dimension 0, as
// a bare AABB.Decomposition would) skips dimensions this frustum already
// resolved flat against the root boundary on an earlier recursion level,
// matching ap_frustrum.rs's decompose(): the "outer" continuation along
// f's own axis is handled by the caller's time-cut, not by this peel, and
// every dimension above it gets its own disjoint min/max slab so sibling
// boundary nodes never write overlapping output cells.
func (f Frustum) Decompose(in, inner AABB, childSteps int) []Frustum {
	pieces := in.peelRing(inner, f.RecursionDim+1)
	out := make([]Frustum, len(pieces))
	for i, p := range pieces {
		out[i] = Frustum{Output: p.Box, Root: f.Root, RecursionDim: p.Dim, Side: p.Side, Steps: childSteps}
	}
	return out
}

// TimeCut shrinks Steps to s and returns a child frustum for the residual
// steps-s, or (zero value, false) if the residual is empty.
func (f Frustum) TimeCut(s int) (Frustum, bool) {
	rem := f.Steps - s
	if rem <= 0 {
		return Frustum{}, false
	}
	return Frustum{Output: f.Output, Root: f.Root, RecursionDim: f.RecursionDim, Side: f.Side, Steps: rem}, true
}

// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/TEALab-org/nhls-sub000/geometry"
	"github.com/TEALab-org/nhls-sub000/workerpool"
)

// copyFromSuperset reads local's cells out of superBuf (indexed in super's
// coordinate system, which every plan node's Input/Output AABB shares —
// see DESIGN.md's Executor entry for why one root-sized buffer suffices
// at every recursion depth) and writes them into localBuf, indexed in
// local's own coordinate system starting at zero. localBuf must be sized
// local.BufferSize(); super must contain local.
func copyFromSuperset(pool *workerpool.Pool, chunkSize int, super geometry.AABB, superBuf []float64, local geometry.AABB, localBuf []float64) {
	walkBox(pool, chunkSize, local, func(coord []int) {
		localBuf[local.CoordToLinear(coord)] = superBuf[super.CoordToLinear(coord)]
	})
}

// copyToSuperset is copyFromSuperset's inverse, restricted to the cells of
// region (local's own Output sub-box, usually smaller than local itself):
// it scatters region's cells out of localBuf (indexed against local) into
// superBuf (indexed against super). local must contain region, and super
// must contain region.
func copyToSuperset(pool *workerpool.Pool, chunkSize int, super geometry.AABB, superBuf []float64, local, region geometry.AABB, localBuf []float64) {
	walkBox(pool, chunkSize, region, func(coord []int) {
		superBuf[super.CoordToLinear(coord)] = localBuf[local.CoordToLinear(coord)]
	})
}

// walkBox parallelizes over box's outer (axis-0) extent in contiguous
// chunks and calls visit once per cell inside, the same decomposition
// direct.genericStep uses for its own per-cell stencil loop.
func walkBox(pool *workerpool.Pool, chunkSize int, box geometry.AABB, visit func(coord []int)) {
	dim := box.Dim
	outerN := box.Max[0] - box.Min[0] + 1

	pool.ParallelChunks(outerN, chunkSize, func(lo, hi int) {
		coord := make([]int, dim)

		var walk func(d int)
		walk = func(d int) {
			if d == dim {
				visit(coord)
				return
			}
			for v := box.Min[d]; v <= box.Max[d]; v++ {
				coord[d] = v
				walk(d + 1)
			}
		}

		for i0 := lo; i0 < hi; i0++ {
			coord[0] = box.Min[0] + i0
			walk(1)
		}
	})
}

// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package scratch

import "fmt"

// Arena is one contiguous byte allocation backing every node's scratch
// buffers, sized and laid out by Allocate. Its lifetime matches the
// solver that owns it.
type Arena struct {
	bytes []byte
}

// NewArena allocates an Arena of size bytes, which must be a multiple of
// MinAlignment — Allocate always produces such a size, so this is a
// caller precondition rather than a recoverable error.
func NewArena(size int) *Arena {
	if size%MinAlignment != 0 {
		panic(fmt.Sprintf("scratch: arena size %d is not a multiple of %d", size, MinAlignment))
	}
	return &Arena{bytes: make([]byte, size)}
}

// Size is the arena's total byte capacity.
func (a *Arena) Size() int { return len(a.bytes) }

// Real returns a float64 view of n elements starting at byte offset.
// offset must be a multiple of 8 (every offset Allocate produces is a
// multiple of MinAlignment, which is itself a multiple of 8).
func (a *Arena) Real(offset, n int) []float64 {
	return bytesToFloat64(a.bytes[offset : offset+n*bytesPerReal])
}

// Complex returns a complex128 view of n elements starting at byte offset.
func (a *Arena) Complex(offset, n int) []complex128 {
	return bytesToComplex128(a.bytes[offset : offset+n*bytesPerComplex])
}

// Close releases the arena. The Go runtime reclaims the backing array
// once nothing references it; this method exists for interface parity
// with the explicit-deallocation-on-teardown lifecycle the rest of the
// solver follows (geometry/workerpool resources are all acquired and
// released at well-defined points), not because anything must run here.
func (a *Arena) Close() { a.bytes = nil }

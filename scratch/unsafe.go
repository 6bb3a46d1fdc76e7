// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

package scratch

import "unsafe"

// bytesToFloat64 reinterprets a byte slice as a float64 slice without
// copying, the same register-reinterpretation idiom
// janpfeifer-go-highway uses to view raw lanes as a fixed-width numeric
// type (e.g. hwy/bitops_neon.go's unsafe.Pointer casts between vector
// and array representations of the same bits).
func bytesToFloat64(b []byte) []float64 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&b[0])), len(b)/bytesPerReal)
}

// bytesToComplex128 is the complex128 analog of bytesToFloat64.
func bytesToComplex128(b []byte) []complex128 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*complex128)(unsafe.Pointer(&b[0])), len(b)/bytesPerComplex)
}

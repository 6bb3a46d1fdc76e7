// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

// Package kernelstore content-addresses the FFT/composition kernels the
// planner requests: two nodes whose OpDescriptor compares equal receive
// the same OpId, so one kernel is built once and reused by every periodic
// node that needs it.
package kernelstore

import "github.com/TEALab-org/nhls-sub000/geometry"

// OpId is a dense index into a Store, assigned in first-observation order.
type OpId int

// OpDescriptor is the hashable key identifying one convolution kernel: the
// extent it was built for, the step count it advances, and the thread
// budget its FFT plan was created with. TimeVarying ops are additionally
// keyed by the half-open step range [StepMin, StepMax) they collapse,
// counted from the start of the enclosing slab, since a time-varying kernel is only valid for
// the interval it was composed over.
type OpDescriptor struct {
	Dim          int
	Extents      [geometry.MaxDim]int
	Steps        int
	ThreadBudget int
	TimeVarying  bool
	StepMin      int
	StepMax      int
}

// Table interns OpDescriptors into dense OpIds. It is not safe for
// concurrent use — the planner builds it single-threaded during plan
// generation, before any parallel execution begins.
type Table struct {
	index map[OpDescriptor]OpId
	descs []OpDescriptor
}

// NewTable returns an empty op table.
func NewTable() *Table {
	return &Table{index: make(map[OpDescriptor]OpId)}
}

// Intern returns the OpId for d, assigning a new dense id the first time a
// particular descriptor is seen and reusing it for every later match.
func (t *Table) Intern(d OpDescriptor) OpId {
	if id, ok := t.index[d]; ok {
		return id
	}
	id := OpId(len(t.descs))
	t.descs = append(t.descs, d)
	t.index[d] = id
	return id
}

// Descriptor returns the descriptor id was interned with.
func (t *Table) Descriptor(id OpId) OpDescriptor {
	return t.descs[id]
}

// Len is the number of distinct descriptors interned so far, i.e. the
// number of entries a KernelStore built from this table must hold.
func (t *Table) Len() int {
	return len(t.descs)
}

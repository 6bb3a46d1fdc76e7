// Copyright 2026 The nhls-sub000 Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool is the solver's concurrency adaptor: a persistent
// worker pool, created once per Solver at construction and reused by every
// node the executor walks. It exposes exactly the two primitives the
// design calls for: ScopedSpawn ("fork tasks and join them on scope
// exit") and ParallelChunks/ParallelFor ("parallel
// chunked for-each over an index range"). No coroutines, no cross-call
// futures — every call blocks its caller until the work it dispatched has
// completed.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	pool.ScopedSpawn(
//	    func() { solveBoundary(child0) },
//	    func() { solveBoundary(child1) },
//	)
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Pool is a persistent worker pool reused across every plan node the
// executor runs. Workers are spawned once at creation and persist until
// Close.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a pool with the given number of workers. If numWorkers <= 0,
// it uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the pool. Safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

func (p *Pool) submit(fn func(), wg *sync.WaitGroup) {
	if p.closed.Load() {
		fn()
		wg.Done()
		return
	}
	p.workC <- workItem{fn: fn, barrier: wg}
}

// ScopedSpawn runs each task on its own goroutine (not on the pool's
// workers; a single task runs inline on the caller's goroutine) and blocks
// until every one has completed. Tasks run concurrently with each other; the caller is
// responsible for ensuring they touch disjoint state (the planner and
// accountant guarantee this for boundary-correction siblings, whose output
// AABBs are disjoint by construction). A panic inside any task propagates
// and aborts the process, matching the fatal-error policy for invariant
// violations: nothing here recovers.
func (p *Pool) ScopedSpawn(tasks ...func()) {
	switch len(tasks) {
	case 0:
		return
	case 1:
		tasks[0]()
		return
	}

	var g errgroup.Group
	for _, task := range tasks {
		g.Go(func() error {
			task()
			return nil
		})
	}
	_ = g.Wait()
}

// ParallelChunks partitions [0,n) into contiguous chunks of at most
// chunkSize elements and runs fn once per chunk. Chunk boundaries always
// advance by exactly chunkSize — never by the chunk's own end, which would
// silently skip work whenever chunkSize does not evenly divide n. Blocks
// until every chunk has run.
func (p *Pool) ParallelChunks(n, chunkSize int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if chunkSize <= 0 {
		chunkSize = n
	}

	numChunks := (n + chunkSize - 1) / chunkSize
	if numChunks <= 1 || p.closed.Load() {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	wg.Add(numChunks)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		p.submit(func() { fn(start, end) }, &wg)
	}
	wg.Wait()
}

// ParallelFor executes fn for each index in [0, n), splitting the range
// into up to NumWorkers contiguous strips. Blocks until all work
// completes.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := min(p.numWorkers, n)
	if workers <= 1 {
		fn(0, n)
		return
	}
	p.ParallelChunks(n, (n+workers-1)/workers, fn)
}

// ParallelForAtomic executes fn(i) for each index in [0,n) using atomic
// work stealing, for better load balancing when per-item cost varies.
func (p *Pool) ParallelForAtomic(n int, fn func(i int)) {
	p.ParallelForAtomicBatched(n, 1, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}

// ParallelForAtomicBatched executes fn over batches of up to batchSize
// indices, grabbed via atomic work stealing. Combines the load balancing
// of atomic distribution with reduced atomic-operation overhead by
// processing multiple items per grab. Blocks until all work completes.
func (p *Pool) ParallelForAtomicBatched(n, batchSize int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	numBatches := (n + batchSize - 1) / batchSize
	workers := min(p.numWorkers, numBatches)
	if workers <= 1 || p.closed.Load() {
		fn(0, n)
		return
	}

	var nextBatch atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		p.submit(func() {
			for {
				batch := nextBatch.Add(1) - 1
				start := int(batch) * batchSize
				if start >= n {
					return
				}
				fn(start, min(start+batchSize, n))
			}
		}, &wg)
	}
	wg.Wait()
}

package sim

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum element count to use parallel
// processing. Below this, single-threaded is faster due to dispatch
// overhead.
const parallelThreshold = 4096

// span is a half-open index range handed to one worker.
type span struct {
	start, end int
}

// Pool is a persistent worker pool for data-parallel passes over flat
// index ranges. The stepper uses it for cells and the renderer for
// pixels. Run blocks until every chunk completes, so the phases of a
// frame stay strictly ordered while each phase uses all cores.
type Pool struct {
	numWorkers int

	workChan chan span
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup

	// fn is set before dispatch and cleared after the barrier; the
	// channel operations order it against the workers.
	fn func(start, end int)
}

// NewPool starts a pool with the given worker count; zero or negative
// means GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: workers,
		workChan:   make(chan span, workers),
		doneChan:   make(chan struct{}, workers),
		stopChan:   make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Workers returns the worker count.
func (p *Pool) Workers() int { return p.numWorkers }

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case chunk := <-p.workChan:
			p.fn(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// Run splits [0, n) across the workers and blocks until every chunk has
// been processed. Small ranges run inline on the caller.
func (p *Pool) Run(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if n < parallelThreshold || p.numWorkers == 1 {
		fn(0, n)
		return
	}

	p.fn = fn
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		p.workChan <- span{start: start, end: end}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
	p.fn = nil
}

// Stop signals the workers to exit and waits for them. The pool cannot
// be reused afterwards.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

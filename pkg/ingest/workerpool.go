// Package ingest gathers reading material for annotation, fetching pages
// concurrently on a small worker pool.
package ingest

import (
	"context"
	"errors"
	"sync"
)

// Job is a unit of work submitted to the WorkerPool.
type Job func(ctx context.Context) error

// ErrPoolClosed is returned if a Submit is attempted after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// WorkerPool runs jobs on a fixed number of goroutines and keeps the
// errors they return.
type WorkerPool struct {
	jobs    chan Job
	quit    chan struct{}
	size    int
	wg      sync.WaitGroup
	submit  sync.RWMutex
	once    sync.Once
	errMu   sync.Mutex
	errs    []error
}

// NewWorkerPool creates a pool with the given number of workers and job
// queue capacity.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		jobs: make(chan Job, queue),
		quit: make(chan struct{}),
		size: workers,
	}
}

// Start launches the workers. They run until ctx is done or the queue is
// drained after Close.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					if err := job(ctx); err != nil {
						p.errMu.Lock()
						p.errs = append(p.errs, err)
						p.errMu.Unlock()
					}
				}
			}
		}()
	}
}

// Submit enqueues a job, blocking while the queue is full. It returns
// ErrPoolClosed once Close has been called, or ctx.Err() if ctx ends first.
func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	p.submit.RLock()
	defer p.submit.RUnlock()

	select {
	case <-p.quit:
		return ErrPoolClosed
	default:
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, waits for the queued ones to finish and
// returns the joined job errors.
func (p *WorkerPool) Close() error {
	p.once.Do(func() {
		close(p.quit)
		// Blocked submitters release the read lock once quit is closed.
		p.submit.Lock()
		close(p.jobs)
		p.submit.Unlock()
	})
	p.wg.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return errors.Join(p.errs...)
}

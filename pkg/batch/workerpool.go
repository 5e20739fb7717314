// Package batch fans line generation out over a fixed pool of goroutines.
package batch

import (
	"context"
	"sync"
)

// Job is a unit of work submitted to the WorkerPool.
// It returns an error to indicate failure; the pool itself ignores it.
type Job func(ctx context.Context) error

// WorkerPool runs jobs using a fixed number of goroutines.
type WorkerPool struct {
	jobs      chan Job
	quit      chan struct{}
	wg        sync.WaitGroup
	workers   int
	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewWorkerPool creates a new worker pool with the specified number of workers
// and job queue capacity.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		jobs:    make(chan Job, queue),
		quit:    make(chan struct{}),
		workers: workers,
	}
}

// Workers returns the number of goroutines the pool runs.
func (p *WorkerPool) Workers() int { return p.workers }

// Start begins the worker goroutines and listens for jobs until ctx is done or Close is called.
func (p *WorkerPool) Start(ctx context.Context) {
	for range p.workers {
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
					_ = job(ctx)
				}
			}
		}()
	}
}

// Submit enqueues a job for processing. It blocks while the queue is full and
// returns ErrPoolClosed if the pool is closed before or during the wait.
func (p *WorkerPool) Submit(job Job) error {
	return p.SubmitContext(context.Background(), job)
}

// SubmitContext is like Submit but gives up with ctx's error when ctx is done
// before the job could be queued.
func (p *WorkerPool) SubmitContext(ctx context.Context, job Job) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return ErrPoolClosed
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

// Close stops accepting new jobs and waits for workers to finish the jobs
// already queued.
func (p *WorkerPool) Close() {
	p.closeOnce.Do(func() {
		// Release blocked submitters before taking the write lock.
		close(p.quit)
		p.closeMu.Lock()
		p.closed = true
		close(p.jobs)
		p.closeMu.Unlock()
	})
	p.wg.Wait()
}

// ErrPoolClosed is returned if a Submit is attempted after Close.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError provides a simple typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }

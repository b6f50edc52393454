// Package tasks runs fire-and-forget background jobs on a small bounded
// worker pool. Jobs submitted while the queue is full are dropped; callers
// only use this for work whose loss costs latency, not correctness.
package tasks

import (
	"context"
	"sync"

	"github.com/myaku-dev/myaku/internal/logger"
)

// Runner accepts background jobs.
type Runner interface {
	// Submit queues the job, reporting false when it was dropped.
	Submit(name string, job func(ctx context.Context)) bool
}

// Pool is a bounded asynchronous Runner.
type Pool struct {
	queue chan task
	log   logger.Logger

	mu       sync.Mutex
	stopped  bool
	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type task struct {
	name string
	run  func(ctx context.Context)
}

// NewPool starts workers goroutines draining a queue of queueSize jobs.
func NewPool(queueSize, workers int, log logger.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:  make(chan task, queueSize),
		log:    log,
		cancel: cancel,
	}

	p.wg.Add(workers)
	for range workers {
		go p.worker(ctx)
	}
	return p
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for t := range p.queue {
		if ctx.Err() != nil {
			return
		}
		t.run(ctx)
	}
}

// Submit queues the job. A full queue or a stopped pool drops it with a
// warning.
func (p *Pool) Submit(name string, job func(ctx context.Context)) bool {
	// The lock orders Submit against Stop's queue close.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		p.log.Warn("background task dropped, pool stopped", logger.String("task", name))
		return false
	}

	select {
	case p.queue <- task{name: name, run: job}:
		return true
	default:
		p.log.Warn("background task dropped, queue full", logger.String("task", name))
		return false
	}
}

// Stop cancels running jobs, drops queued ones, and waits for workers.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		p.cancel()
		close(p.queue)
	})
	p.wg.Wait()
}

// Synchronous runs every job inline. For tests.
type Synchronous struct{}

// Submit runs the job immediately on the calling goroutine.
func (Synchronous) Submit(_ string, job func(ctx context.Context)) bool {
	job(context.Background())
	return true
}

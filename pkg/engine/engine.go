// Package engine contains the trigger dispatcher, the action interpreter and
// the execution recorder: the runtime that turns domain events into workflow
// runs.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/storeflow/storeflow/pkg/config"
)

// Pool runs executions on a fixed set of workers. Submissions never block
// the caller: when every worker is busy and the queue is full the job runs
// on an overflow goroutine instead.
type Pool struct {
	logger  *slog.Logger
	jobs    chan func(context.Context)
	wg      sync.WaitGroup
	mu      sync.Mutex
	runCtx  context.Context
	cancel  context.CancelFunc
	workers int
	stopped bool
}

func NewPool(logger *slog.Logger, workers int) *Pool {
	if workers <= 0 {
		workers = config.DefaultWorkerCount
	}

	return &Pool{
		logger:  logger,
		jobs:    make(chan func(context.Context), workers*4),
		workers: workers,
	}
}

// Start launches the workers. Jobs observe a context derived from ctx, so
// cancelling ctx interrupts in-flight delays and outbound calls.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runCtx, p.cancel = context.WithCancel(ctx)

	for range p.workers {
		p.wg.Add(1)

		go p.worker()
	}

	p.logger.InfoContext(ctx, "Execution pool started", "workers", p.workers)
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobs {
		job(p.runCtx)
	}
}

// Submit enqueues a job and returns immediately. Returns false after Stop.
func (p *Pool) Submit(job func(context.Context)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || p.runCtx == nil {
		return false
	}

	select {
	case p.jobs <- job:
	default:
		p.wg.Add(1)

		go func() {
			defer p.wg.Done()

			job(p.runCtx)
		}()
	}

	return true
}

// Stop closes intake and drains: queued and in-flight jobs finish unless ctx
// expires first, in which case they are cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()

	if p.stopped {
		p.mu.Unlock()

		return nil
	}

	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done

		return ctx.Err()
	}
}

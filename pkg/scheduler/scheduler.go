// Package scheduler drives schedule-triggered workflows: a periodic sweep
// finds due definitions, advances their next run and hands them to the
// dispatcher.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/storeflow/storeflow/pkg/config"
	"github.com/storeflow/storeflow/pkg/engine"
)

// Scheduler owns the sweep loop. The next run is advanced before the
// execution is enqueued, so a slow run never causes the same slot to fire
// twice.
type Scheduler struct {
	logger     *slog.Logger
	repo       *engine.Repository
	dispatcher *engine.Dispatcher
	clock      clockwork.Clock
	tick       time.Duration
	stop       chan struct{}
	done       chan struct{}
}

func New(logger *slog.Logger, repo *engine.Repository, dispatcher *engine.Dispatcher, clock clockwork.Clock, tick time.Duration) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if tick <= 0 {
		tick = config.DefaultSchedulerTick
	}

	return &Scheduler{
		logger:     logger,
		repo:       repo,
		dispatcher: dispatcher,
		clock:      clock,
		tick:       tick,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; the loop runs until
// Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)

	s.logger.InfoContext(ctx, "Scheduler started", "tick", s.tick)
}

// Stop halts the loop and waits for an in-progress sweep to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := s.clock.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.Chan():
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one scheduling pass: every due workflow is rescheduled and
// enqueued. A reschedule failure skips the execution, otherwise the same
// slot would fire again on the next sweep.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.clock.Now()

	due, err := s.repo.DueScheduled(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to scan for due workflows", "error", err)

		return
	}

	for _, workflow := range due {
		if err := s.repo.Reschedule(ctx, workflow, now); err != nil {
			s.logger.ErrorContext(ctx, "Failed to reschedule workflow",
				"workflow_id", workflow.ID,
				"error", err)

			continue
		}

		s.dispatcher.RunScheduled(workflow, now)
	}

	if len(due) > 0 {
		s.logger.DebugContext(ctx, "Sweep enqueued due workflows", "count", len(due))
	}
}

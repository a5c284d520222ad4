package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/storeflow/storeflow/pkg/conditions"
	"github.com/storeflow/storeflow/pkg/eventbus"
	"github.com/storeflow/storeflow/pkg/events"
	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/otelhelper"
)

// ErrNotExecutable is returned when a manual run targets an inactive or
// deleted workflow.
var ErrNotExecutable = errors.New("workflow is not active")

// Dispatcher matches incoming domain events against workflow definitions and
// hands matches to the execution pool. One event can fire many workflows;
// each runs independently.
type Dispatcher struct {
	logger      *slog.Logger
	repo        *Repository
	interpreter *Interpreter
	recorder    *Recorder
	pool        *Pool
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	clock       clockwork.Clock
}

// DispatcherOptions carries the optional collaborators. A nil Publisher
// disables lifecycle events; a nil Tracer disables spans.
type DispatcherOptions struct {
	Publisher eventbus.EventPublisher
	Tracer    trace.Tracer
	Clock     clockwork.Clock
}

func NewDispatcher(logger *slog.Logger, repo *Repository, interpreter *Interpreter, pool *Pool, opts DispatcherOptions) *Dispatcher {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &Dispatcher{
		logger:      logger,
		repo:        repo,
		interpreter: interpreter,
		recorder:    NewRecorder(logger, repo),
		pool:        pool,
		publisher:   opts.Publisher,
		tracer:      opts.Tracer,
		clock:       opts.Clock,
	}
}

// Dispatch fans a domain event out to every matching workflow of the event's
// store. Matching is synchronous; execution is handed to the pool, so
// Dispatch returns as soon as the matches are enqueued.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.DomainEvent) error {
	if !event.Type.Valid() {
		d.logger.WarnContext(ctx, "Ignoring event with unknown trigger type",
			"event_id", event.ID,
			"event_type", event.Type)

		return nil
	}

	workflows, err := d.repo.ActiveFor(ctx, event.StoreID, event.Type)
	if err != nil {
		return err
	}

	matched := 0

	for _, workflow := range workflows {
		if !conditions.Matches(workflow.Trigger.Conditions, event.Payload) {
			continue
		}

		matched++
		trigger := FromDomainEvent(event)

		d.pool.Submit(func(jobCtx context.Context) {
			d.Execute(jobCtx, workflow, trigger)
		})
	}

	d.logger.DebugContext(ctx, "Event dispatched",
		"event_id", event.ID,
		"event_type", event.Type,
		"store_id", event.StoreID,
		"candidates", len(workflows),
		"matched", matched)

	return nil
}

// RunManual enqueues one operator-initiated execution. The workflow must be
// active and undeleted.
func (d *Dispatcher) RunManual(ctx context.Context, workflowID, userID string, payload map[string]any) error {
	workflow, err := d.repo.Get(ctx, workflowID)
	if err != nil {
		return err
	}

	if !workflow.Executable() {
		return ErrNotExecutable
	}

	trigger := ManualTrigger(workflow, userID, payload)

	d.pool.Submit(func(jobCtx context.Context) {
		d.Execute(jobCtx, workflow, trigger)
	})

	return nil
}

// RunScheduled enqueues one scheduler-initiated execution.
func (d *Dispatcher) RunScheduled(workflow *models.Workflow, at time.Time) {
	trigger := ScheduleTrigger(workflow, at)

	d.pool.Submit(func(jobCtx context.Context) {
		d.Execute(jobCtx, workflow, trigger)
	})
}

// Execute runs one workflow to completion: interpret the action program,
// record the outcome exactly once, publish the lifecycle event. The returned
// error is the run's aborting error, nil for successful runs.
func (d *Dispatcher) Execute(ctx context.Context, workflow *models.Workflow, trigger TriggerContext) error {
	executionID := uuid.New().String()

	var span trace.Span

	if d.tracer != nil {
		ctx, span = otelhelper.StartSpan(ctx, d.tracer, "workflow.execute",
			attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
			attribute.String(otelhelper.StoreIDKey, workflow.StoreID),
			attribute.String(otelhelper.TriggerTypeKey, trigger.TriggeredBy()),
			attribute.String(otelhelper.ExecutionIDKey, executionID),
			attribute.String(otelhelper.EventIDKey, trigger.EventID),
		)
		defer span.End()
	}

	start := d.clock.Now()

	runErr := d.interpreter.Run(ctx, workflow.SortedActions(), trigger)

	if span != nil {
		if runErr != nil {
			span.RecordError(runErr)
			span.SetStatus(codes.Error, runErr.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	finished := d.clock.Now().UTC()
	duration := finished.Sub(start.UTC())

	d.recorder.Record(ctx, workflow.ID, runErr, finished)

	if runErr != nil {
		d.logger.ErrorContext(ctx, "Workflow execution failed",
			"workflow_id", workflow.ID,
			"store_id", workflow.StoreID,
			"execution_id", executionID,
			"triggered_by", trigger.TriggeredBy(),
			"duration_ms", duration.Milliseconds(),
			"error", runErr)

		d.publish(ctx, workflow.StoreID, events.ExecutionFailed{
			ID:          executionID,
			WorkflowID:  workflow.ID,
			StoreID:     workflow.StoreID,
			TriggeredBy: trigger.TriggeredBy(),
			Error:       runErr.Error(),
			DurationMS:  duration.Milliseconds(),
			FinishedAt:  finished,
		})

		return runErr
	}

	d.logger.InfoContext(ctx, "Workflow execution completed",
		"workflow_id", workflow.ID,
		"store_id", workflow.StoreID,
		"execution_id", executionID,
		"triggered_by", trigger.TriggeredBy(),
		"duration_ms", duration.Milliseconds())

	d.publish(ctx, workflow.StoreID, events.ExecutionCompleted{
		ID:          executionID,
		WorkflowID:  workflow.ID,
		StoreID:     workflow.StoreID,
		TriggeredBy: trigger.TriggeredBy(),
		DurationMS:  duration.Milliseconds(),
		FinishedAt:  finished,
	})

	return nil
}

func (d *Dispatcher) publish(ctx context.Context, key string, event events.Event) {
	if d.publisher == nil {
		return
	}

	if err := d.publisher.Publish(ctx, key, event); err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(),
			"error", err)
	}
}

package engine

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/persistence"
)

// Repository layers definition-level policy over the raw store: validation
// on save and next-run computation for schedule triggers.
type Repository struct {
	store persistence.Persistence
	clock clockwork.Clock
}

func NewRepository(store persistence.Persistence, clock clockwork.Clock) *Repository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Repository{store: store, clock: clock}
}

// Save validates the definition, recomputes the schedule's next run and
// persists. Invalid definitions never reach the store.
func (r *Repository) Save(ctx context.Context, workflow *models.Workflow) error {
	if err := workflow.Validate(); err != nil {
		return err
	}

	now := r.clock.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	// Only active schedule workflows hold a live slot; inactive ones keep
	// whatever NextRun they had and are filtered out of due scans anyway.
	if workflow.Trigger.Schedule != nil && workflow.IsActive {
		workflow.Trigger.Schedule.NextRun = workflow.Trigger.Schedule.CalculateNext(r.clock.Now())
	}

	return r.store.SaveWorkflow(ctx, workflow)
}

// Reschedule advances the schedule past now and persists the definition
// unchanged otherwise. Called after every scheduled run, successful or not.
func (r *Repository) Reschedule(ctx context.Context, workflow *models.Workflow, now time.Time) error {
	if workflow.Trigger.Schedule == nil {
		return nil
	}

	workflow.Trigger.Schedule.NextRun = workflow.Trigger.Schedule.CalculateNext(now)

	return r.store.SaveWorkflow(ctx, workflow)
}

func (r *Repository) List(ctx context.Context) ([]*models.Workflow, error) {
	return r.store.Workflows(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return r.store.WorkflowByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.store.DeleteWorkflow(ctx, id)
}

func (r *Repository) ActiveFor(ctx context.Context, storeID string, trigger models.EventType) ([]*models.Workflow, error) {
	return r.store.ActiveByTrigger(ctx, storeID, trigger)
}

func (r *Repository) DueScheduled(ctx context.Context, now time.Time) ([]*models.Workflow, error) {
	return r.store.DueScheduled(ctx, now)
}

func (r *Repository) RecordExecution(ctx context.Context, id string, success bool, lastError *models.LastError, at time.Time) error {
	return r.store.RecordExecution(ctx, id, success, lastError, at)
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.store.HealthCheck(ctx)
}

// Package persistence provides the storage abstraction for workflow
// definitions and execution statistics.
package persistence

import (
	"context"
	"time"

	"github.com/storeflow/storeflow/pkg/models"
)

// Persistence is implemented by each backing store. Query methods never
// return soft-deleted workflows; list results are ordered newest-created
// first because the dispatcher's iteration order is observable.
type Persistence interface {
	// Workflows returns every undeleted workflow, newest first.
	Workflows(ctx context.Context) ([]*models.Workflow, error)

	// WorkflowByID returns ErrWorkflowNotFound for unknown or deleted ids.
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)

	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error

	// DeleteWorkflow soft-deletes; the engine never removes rows.
	DeleteWorkflow(ctx context.Context, id string) error

	// ActiveByTrigger returns active, undeleted workflows of one store and
	// trigger type, newest first.
	ActiveByTrigger(ctx context.Context, storeID string, trigger models.EventType) ([]*models.Workflow, error)

	// DueScheduled returns every active, undeleted schedule workflow whose
	// next_run is at or before now.
	DueScheduled(ctx context.Context, now time.Time) ([]*models.Workflow, error)

	// RecordExecution atomically bumps the execution counters and, on
	// failure, overwrites last_error. Recordings for different workflows may
	// run concurrently; recordings for the same workflow are linearized.
	RecordExecution(ctx context.Context, id string, success bool, lastError *models.LastError, at time.Time) error

	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

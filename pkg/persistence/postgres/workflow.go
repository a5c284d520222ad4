package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/persistence"
)

const workflowColumns = `
	id
  , store_id
  , organization_id
  , name
  , description
  , tags
  , version
  , trigger
  , actions
  , is_active
  , is_deleted
  , total_executions
  , successful_executions
  , failed_executions
  , last_executed_at
  , last_error
  , created_at
  , updated_at
`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE NOT is_deleted
		ORDER BY created_at DESC
	`

	return r.queryWorkflows(ctx, query)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1 AND NOT is_deleted
	`

	row := r.db.QueryRowContext(ctx, query, id)

	workflow, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// ActiveByTrigger returns dispatchable workflows for one store and trigger
// type, newest first. The ordering is observable by workflow authors.
func (r *WorkflowRepository) ActiveByTrigger(ctx context.Context, storeID string, trigger models.EventType) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE store_id = $1
		  AND trigger_type = $2
		  AND is_active
		  AND NOT is_deleted
		ORDER BY created_at DESC
	`

	return r.queryWorkflows(ctx, query, storeID, string(trigger))
}

// DueScheduled returns active schedule workflows whose next_run is at or
// before now. Workflows with NULL next_run (unparsable schedules) are
// never due.
func (r *WorkflowRepository) DueScheduled(ctx context.Context, now time.Time) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE trigger_type = 'schedule'
		  AND is_active
		  AND NOT is_deleted
		  AND next_run IS NOT NULL
		  AND next_run <= $1
		ORDER BY created_at DESC
	`

	return r.queryWorkflows(ctx, query, now)
}

// RecordExecution bumps the counters in a single UPDATE so concurrent
// recordings on the same workflow are linearized by the database.
func (r *WorkflowRepository) RecordExecution(ctx context.Context, id string, success bool, lastError *models.LastError, at time.Time) error {
	if success {
		query := `
			UPDATE workflows SET
				total_executions = total_executions + 1,
				successful_executions = successful_executions + 1,
				last_executed_at = $2
			WHERE id = $1
		`

		return r.execRecord(ctx, id, query, id, at)
	}

	errorJSON, err := json.Marshal(lastError)
	if err != nil {
		return persistence.NewWorkflowError("RecordExecution", id, err)
	}

	query := `
		UPDATE workflows SET
			total_executions = total_executions + 1,
			failed_executions = failed_executions + 1,
			last_executed_at = $2,
			last_error = $3
		WHERE id = $1
	`

	return r.execRecord(ctx, id, query, id, at, errorJSON)
}

func (r *WorkflowRepository) execRecord(ctx context.Context, id, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistence.NewWorkflowError("RecordExecution", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("RecordExecution", id, err)
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("RecordExecution", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	tagsJSON, err := json.Marshal(workflow.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	triggerJSON, err := json.Marshal(workflow.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	actionsJSON, err := json.Marshal(workflow.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	var lastErrorJSON []byte
	if workflow.Stats.LastError != nil {
		lastErrorJSON, err = json.Marshal(workflow.Stats.LastError)
		if err != nil {
			return fmt.Errorf("failed to marshal last error: %w", err)
		}
	}

	var nextRun *time.Time
	if workflow.Trigger.Schedule != nil {
		nextRun = workflow.Trigger.Schedule.NextRun
	}

	query := `
		INSERT INTO workflows (
			id, store_id, organization_id, name, description, tags, version,
			trigger_type, trigger, actions, is_active, is_deleted, next_run,
			total_executions, successful_executions, failed_executions,
			last_executed_at, last_error, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id) DO UPDATE SET
			store_id = EXCLUDED.store_id,
			organization_id = EXCLUDED.organization_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			tags = EXCLUDED.tags,
			version = EXCLUDED.version,
			trigger_type = EXCLUDED.trigger_type,
			trigger = EXCLUDED.trigger,
			actions = EXCLUDED.actions,
			is_active = EXCLUDED.is_active,
			is_deleted = EXCLUDED.is_deleted,
			next_run = EXCLUDED.next_run,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.StoreID,
		nullString(workflow.OrganizationID),
		workflow.Name,
		workflow.Description,
		tagsJSON,
		workflow.Version,
		string(workflow.Trigger.Type),
		triggerJSON,
		actionsJSON,
		workflow.IsActive,
		workflow.IsDeleted,
		nextRun,
		workflow.Stats.TotalExecutions,
		workflow.Stats.SuccessfulExecutions,
		workflow.Stats.FailedExecutions,
		workflow.Stats.LastExecutedAt,
		lastErrorJSON,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete soft-deletes; deleting an already-deleted workflow is not an error.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE workflows SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (r *WorkflowRepository) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) scanWorkflow(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var (
		workflow                           models.Workflow
		organizationID                     sql.NullString
		tagsJSON, triggerJSON, actionsJSON []byte
		lastErrorJSON                      []byte
		lastExecutedAt                     sql.NullTime
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.StoreID,
		&organizationID,
		&workflow.Name,
		&workflow.Description,
		&tagsJSON,
		&workflow.Version,
		&triggerJSON,
		&actionsJSON,
		&workflow.IsActive,
		&workflow.IsDeleted,
		&workflow.Stats.TotalExecutions,
		&workflow.Stats.SuccessfulExecutions,
		&workflow.Stats.FailedExecutions,
		&lastExecutedAt,
		&lastErrorJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.OrganizationID = organizationID.String

	if err := json.Unmarshal(tagsJSON, &workflow.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}

	if err := json.Unmarshal(triggerJSON, &workflow.Trigger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
	}

	if err := json.Unmarshal(actionsJSON, &workflow.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	if lastExecutedAt.Valid {
		workflow.Stats.LastExecutedAt = &lastExecutedAt.Time
	}

	if len(lastErrorJSON) > 0 {
		workflow.Stats.LastError = &models.LastError{}
		if err := json.Unmarshal(lastErrorJSON, workflow.Stats.LastError); err != nil {
			return nil, fmt.Errorf("failed to unmarshal last error: %w", err)
		}
	}

	return &workflow, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

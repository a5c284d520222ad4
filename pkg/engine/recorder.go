package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/storeflow/storeflow/pkg/models"
)

// Recorder persists the outcome of one execution. Exactly one recording
// happens per run; a recording failure is logged, never propagated, so a
// statistics outage cannot fail or retry the run itself.
type Recorder struct {
	logger *slog.Logger
	repo   *Repository
}

func NewRecorder(logger *slog.Logger, repo *Repository) *Recorder {
	return &Recorder{logger: logger, repo: repo}
}

func (r *Recorder) Record(ctx context.Context, workflowID string, runErr error, at time.Time) {
	lastError := buildLastError(runErr, at)

	if err := r.repo.RecordExecution(ctx, workflowID, runErr == nil, lastError, at); err != nil {
		r.logger.ErrorContext(ctx, "Failed to record execution",
			"workflow_id", workflowID,
			"error", err)
	}
}

func buildLastError(runErr error, at time.Time) *models.LastError {
	if runErr == nil {
		return nil
	}

	return &models.LastError{
		Message:   runErr.Error(),
		Timestamp: at,
		Details:   string(KindOf(runErr)),
	}
}

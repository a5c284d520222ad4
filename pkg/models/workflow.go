// Package models defines the core domain models for the workflow automation engine.
package models

import (
	"errors"
	"sort"
	"time"
)

// Workflow is the root aggregate: one trigger, optional conditions and an
// ordered action program, owned by a single store (tenant).
type Workflow struct {
	ID             string   `json:"id"`
	StoreID        string   `json:"store_id"                  validate:"required"`
	OrganizationID string   `json:"organization_id,omitempty"`
	Name           string   `json:"name"                      validate:"required,min=3"`
	Description    string   `json:"description,omitempty"`
	Tags           []string `json:"tags,omitempty"`

	// Version is increased by at least one on every edit, never on execution.
	Version int `json:"version"`

	Trigger Trigger   `json:"trigger"`
	Actions []*Action `json:"actions"`

	IsActive  bool `json:"is_active"`
	IsDeleted bool `json:"is_deleted"`

	Stats ExecutionStats `json:"stats"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExecutionStats carries per-workflow execution counters maintained by the
// recorder. LastError is sticky: it is only overwritten by failed runs.
type ExecutionStats struct {
	TotalExecutions      int64      `json:"total_executions"`
	SuccessfulExecutions int64      `json:"successful_executions"`
	FailedExecutions     int64      `json:"failed_executions"`
	LastExecutedAt       *time.Time `json:"last_executed_at,omitempty"`
	LastError            *LastError `json:"last_error,omitempty"`
}

// LastError is the persisted diagnostic of the most recent failed run.
// Details is a free-form string, historically a stack trace.
type LastError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

var (
	ErrApprovalNotSupported = errors.New("approval actions are not supported yet")
	ErrScheduleRequired     = errors.New("schedule trigger requires a schedule")
	ErrScheduleNotAllowed   = errors.New("schedule is only valid on schedule triggers")
)

// Executable reports whether the dispatcher may run this workflow.
func (w *Workflow) Executable() bool {
	return w.IsActive && !w.IsDeleted
}

// SortedActions returns the action program in execution order: non-decreasing
// Order, ties broken by insertion position. The slice is a copy; the stored
// definition is left untouched.
func (w *Workflow) SortedActions() []*Action {
	return SortActions(w.Actions)
}

// SortActions orders an action list for execution: non-decreasing Order with
// insertion-position tie-break. Nested condition branches are ordered with
// the same rule.
func SortActions(actions []*Action) []*Action {
	sorted := make([]*Action, len(actions))
	copy(sorted, actions)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	return sorted
}

// Validate checks definition-level invariants beyond struct tags. It is
// called on every external save.
func (w *Workflow) Validate() error {
	if w.Trigger.Type == "" || !w.Trigger.Type.Valid() {
		return ErrInvalidTriggerType
	}

	if w.Trigger.Type == TriggerSchedule {
		if w.Trigger.Schedule == nil {
			return ErrScheduleRequired
		}

		if err := w.Trigger.Schedule.Validate(); err != nil {
			return err
		}
	} else if w.Trigger.Schedule != nil {
		return ErrScheduleNotAllowed
	}

	for _, condition := range w.Trigger.Conditions {
		if err := condition.Validate(); err != nil {
			return err
		}
	}

	for _, action := range w.Actions {
		if err := action.Validate(); err != nil {
			return err
		}
	}

	return nil
}

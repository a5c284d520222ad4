// Package file provides JSON-file persistence for workflows, suitable for
// tests and single-process development.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/persistence"
)

// Persistence stores one workflow per JSON file under root/workflows.
// A process-wide mutex linearizes writes; this backend targets a single
// process by design.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

func NewPersistence(root string) *Persistence {
	return &Persistence{root: root}
}

func (p *Persistence) workflowsDir() string {
	return filepath.Join(p.root, "workflows")
}

func (p *Persistence) workflowPath(id string) string {
	return filepath.Join(p.workflowsDir(), id+".json")
}

func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.loadAll()
}

func (p *Persistence) loadAll() ([]*models.Workflow, error) {
	root := os.DirFS(p.workflowsDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflow, err := p.load(file[:len(file)-len(".json")])
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, err
		}

		if workflow.IsDeleted {
			continue
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (p *Persistence) load(id string) (*models.Workflow, error) {
	data, err := os.ReadFile(p.workflowPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewWorkflowError("load", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("load", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("decode", id, err)
	}

	return &workflow, nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflow, err := p.load(id)
	if err != nil {
		return nil, err
	}

	if workflow.IsDeleted {
		return nil, persistence.NewWorkflowError("load", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write(workflow)
}

func (p *Persistence) write(workflow *models.Workflow) error {
	if err := os.MkdirAll(p.workflowsDir(), 0o755); err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("encode", workflow.ID, err)
	}

	if err := os.WriteFile(p.workflowPath(workflow.ID), data, 0o644); err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflow, err := p.load(id)
	if err != nil {
		return err
	}

	workflow.IsDeleted = true
	workflow.UpdatedAt = time.Now().UTC()

	return p.write(workflow)
}

func (p *Persistence) ActiveByTrigger(ctx context.Context, storeID string, trigger models.EventType) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	all, err := p.loadAll()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.Executable() && workflow.StoreID == storeID && workflow.Trigger.Type == trigger {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

func (p *Persistence) DueScheduled(ctx context.Context, now time.Time) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	all, err := p.loadAll()
	if err != nil {
		return nil, err
	}

	due := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if !workflow.Executable() || workflow.Trigger.Type != models.TriggerSchedule {
			continue
		}

		schedule := workflow.Trigger.Schedule
		if schedule == nil || schedule.NextRun == nil {
			continue
		}

		if !schedule.NextRun.After(now) {
			due = append(due, workflow)
		}
	}

	return due, nil
}

func (p *Persistence) RecordExecution(ctx context.Context, id string, success bool, lastError *models.LastError, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflow, err := p.load(id)
	if err != nil {
		return err
	}

	workflow.Stats.TotalExecutions++

	if success {
		workflow.Stats.SuccessfulExecutions++
	} else {
		workflow.Stats.FailedExecutions++
		workflow.Stats.LastError = lastError
	}

	executedAt := at
	workflow.Stats.LastExecutedAt = &executedAt

	return p.write(workflow)
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := os.MkdirAll(p.workflowsDir(), 0o755); err != nil {
		return fmt.Errorf("workflow directory is not writable: %w", err)
	}

	return nil
}

func (p *Persistence) Close(ctx context.Context) error {
	return nil
}

// Package web provides the HTTP API for workflow management.
package web

import "github.com/storeflow/storeflow/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	StoreID        string           `json:"store_id"                  validate:"required"`
	OrganizationID string           `json:"organization_id,omitempty"`
	Name           string           `json:"name"                      validate:"required,min=3"`
	Description    string           `json:"description,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	Trigger        models.Trigger   `json:"trigger"`
	Actions        []*models.Action `json:"actions"`
	IsActive       bool             `json:"is_active"`
}

// UpdateWorkflowRequest is the request body for updating a workflow. All
// fields are optional; omitted fields keep their stored value.
type UpdateWorkflowRequest struct {
	Name        *string          `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string          `json:"description,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Trigger     *models.Trigger  `json:"trigger,omitempty"`
	Actions     []*models.Action `json:"actions,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

// RunWorkflowRequest is the request body for a manual run.
type RunWorkflowRequest struct {
	UserID  string         `json:"user_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

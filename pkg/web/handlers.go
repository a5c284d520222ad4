package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/storeflow/storeflow/pkg/engine"
	"github.com/storeflow/storeflow/pkg/models"
)

// Handlers exposes workflow CRUD and the manual run endpoint.
type Handlers struct {
	repo       *engine.Repository
	dispatcher *engine.Dispatcher
	validator  *validator.Validate
}

func NewHandlers(repo *engine.Repository, dispatcher *engine.Dispatcher, validate *validator.Validate) *Handlers {
	return &Handlers{
		repo:       repo,
		dispatcher: dispatcher,
		validator:  validate,
	}
}

func (h *Handlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.repo.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	storeID := c.Query("store_id")
	if storeID != "" {
		filtered := make([]*models.Workflow, 0, len(workflows))

		for _, workflow := range workflows {
			if workflow.StoreID == storeID {
				filtered = append(filtered, workflow)
			}
		}

		workflows = filtered
	}

	return c.JSON(fiber.Map{
		"workflows": workflows,
		"count":     len(workflows),
	})
}

func (h *Handlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.repo.Get(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(workflow)
}

func (h *Handlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		ID:             uuid.New().String(),
		StoreID:        req.StoreID,
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Tags:           req.Tags,
		Version:        1,
		Trigger:        req.Trigger,
		Actions:        req.Actions,
		IsActive:       req.IsActive,
	}

	if err := h.repo.Save(c.Context(), workflow); err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *Handlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.repo.Get(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Tags != nil {
		existing.Tags = req.Tags
	}

	if req.Trigger != nil {
		existing.Trigger = *req.Trigger
	}

	if req.Actions != nil {
		existing.Actions = req.Actions
	}

	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	// Every edit bumps the definition version; executions never do.
	existing.Version++

	if err := h.repo.Save(c.Context(), existing); err != nil {
		return handleError(c, err)
	}

	return c.JSON(existing)
}

func (h *Handlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.repo.Delete(c.Context(), id); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RunWorkflow enqueues a manual execution and returns immediately; the run
// itself happens on the execution pool.
func (h *Handlers) RunWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	req := RunWorkflowRequest{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.dispatcher.RunManual(c.Context(), id, req.UserID, req.Payload); err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"workflow_id": id,
		"status":      "queued",
	})
}

func (h *Handlers) HealthCheck(c fiber.Ctx) error {
	err := h.repo.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

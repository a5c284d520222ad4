package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/storeflow/storeflow/pkg/engine"
	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unprocessable(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusUnprocessableEntity).
		WithInstance(c.Path()).
		WithType("invalid_definition").
		WithDetail(detail)

	return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("workflow_not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusConflict).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleError maps domain and storage errors onto problem responses.
func handleError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "Workflow not found")
	case isDefinitionError(err):
		return unprocessable(c, err.Error())
	case errors.Is(err, engine.ErrNotExecutable):
		return conflict(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// definitionErrors are the save-time rejections of invalid workflow
// definitions.
var definitionErrors = []error{
	models.ErrInvalidTriggerType,
	models.ErrInvalidOperator,
	models.ErrEmptyConditionPath,
	models.ErrScheduleRequired,
	models.ErrScheduleNotAllowed,
	models.ErrInvalidScheduleType,
	models.ErrInvalidScheduleTime,
	models.ErrInvalidDayOfWeek,
	models.ErrInvalidDayOfMonth,
	models.ErrInvalidCron,
	models.ErrApprovalNotSupported,
	models.ErrUnknownActionType,
	models.ErrMissingConfig,
}

func isDefinitionError(err error) bool {
	for _, sentinel := range definitionErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	return false
}

package engine

import (
	"errors"
	"fmt"

	"github.com/storeflow/storeflow/pkg/models"
)

// ErrorKind classifies an action failure for recording and observability.
type ErrorKind string

const (
	// KindConfigMissing marks actions that cannot run because the engine is
	// missing infrastructure configuration, such as an email action without a
	// mail transport.
	KindConfigMissing ErrorKind = "config_missing"

	// KindInvalidTarget marks actions whose target does not exist, such as an
	// update against an unknown entity id.
	KindInvalidTarget ErrorKind = "invalid_target"

	// KindTransient marks failures of external calls that may succeed on a
	// later run: webhook non-2xx, SMTP refusals, network errors.
	KindTransient ErrorKind = "transient"

	// KindCancelled marks actions interrupted by context cancellation,
	// typically a delay cut short by shutdown.
	KindCancelled ErrorKind = "cancelled"

	// KindDefinition marks defects in the workflow definition itself: unknown
	// action types, approval actions that slipped past validation, condition
	// nesting beyond the recursion limit.
	KindDefinition ErrorKind = "definition"

	// KindInternal is the classification of last resort.
	KindInternal ErrorKind = "internal"
)

// ExecError wraps an action failure with its classification and the action
// kind that produced it.
type ExecError struct {
	Kind   ErrorKind
	Action models.ActionType
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s action failed (%s): %v", e.Action, e.Kind, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

func newExecError(kind ErrorKind, action models.ActionType, err error) *ExecError {
	return &ExecError{Kind: kind, Action: action, Err: err}
}

// KindOf extracts the classification from an error chain, defaulting to
// KindInternal for unclassified errors.
func KindOf(err error) ErrorKind {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}

	return KindInternal
}

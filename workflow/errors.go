package workflow

import "github.com/cschleiden/go-dialogflow/internal/workflowerrors"

type (
	Error           = workflowerrors.Error
	PanicError      = workflowerrors.PanicError
	DivergenceError = workflowerrors.DivergenceError
)

// NewError creates a workflow-semantic error. Workflow-semantic errors are business outcomes, the
// default retry settings do not retry them.
func NewError(msg string) error {
	return workflowerrors.New(msg)
}

// WrapError wraps the given error into a workflow-semantic error.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	return workflowerrors.FromError(err)
}

// CanRetry returns true if the given error may be retried by the default retry settings
func CanRetry(err error) bool {
	return workflowerrors.CanRetry(err)
}

package workflowerrors

import (
	"errors"
)

// Error is a workflow-semantic error. It is raised deliberately by workflow logic, or reconstructed
// from a failed result recorded in the history. Workflow-semantic errors are business outcomes and
// are not retried by the default retry policy.
type Error struct {
	Message string

	Cause      error
	Stacktrace string
}

func (we *Error) Error() string {
	return we.Message
}

func (we *Error) Unwrap() error {
	if we == nil {
		return nil
	}

	return we.Cause
}

func (we *Error) Stack() string {
	return we.Stacktrace
}

var _ error = (*Error)(nil)

// New returns a workflow-semantic error with the given message.
func New(msg string) *Error {
	return &Error{Message: msg}
}

// FromError wraps the given error into a workflow-semantic error
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	// If this is already a workflow error, just return it, do not wrap again
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	e = &Error{
		Message: err.Error(),
		Cause:   err,
	}

	if stackTracer, ok := err.(interface{ Stack() string }); ok {
		e.Stacktrace = stackTracer.Stack()
	}

	return e
}

// CanRetry returns false for workflow-semantic errors and faults, true for everything else
func CanRetry(err error) bool {
	var we *Error
	if errors.As(err, &we) {
		return false
	}

	var de *DivergenceError
	return !errors.As(err, &de)
}

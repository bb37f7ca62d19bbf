package workflowerrors

import "fmt"

// PanicError is returned when workflow code panics.
type PanicError struct {
	message    string
	stacktrace string
}

func (pe *PanicError) Error() string {
	return pe.message
}

func (pe *PanicError) Stack() string {
	return pe.stacktrace
}

// NewPanicError creates a panic error for the recovered value r. It must be called from the deferred
// function that recovered, so that the captured stack includes the panicking frames.
func NewPanicError(r any) *PanicError {
	return &PanicError{
		message:    fmt.Sprintf("panic: %v", r),
		stacktrace: stack(r),
	}
}

package workflowerrors

import "fmt"

// DivergenceError is returned when the workflow code and its recorded history disagree, or when the
// suspend/resume protocol is violated. The workflow instance cannot continue.
type DivergenceError struct {
	// Index is the history position at which the divergence was detected
	Index int

	ExpectedKind     string
	ExpectedHashedID string
	ActualKind       string
	ActualHashedID   string

	Reason string
}

func (e *DivergenceError) Error() string {
	if e.ExpectedKind == "" && e.ActualKind == "" {
		return fmt.Sprintf("workflow diverged at position %d: %s", e.Index, e.Reason)
	}

	return fmt.Sprintf(
		"workflow diverged at position %d: %s (expected %s %q, got %s %q)",
		e.Index, e.Reason, e.ExpectedKind, e.ExpectedHashedID, e.ActualKind, e.ActualHashedID,
	)
}

func NewDivergenceError(index int, reason string) *DivergenceError {
	return &DivergenceError{Index: index, Reason: reason}
}

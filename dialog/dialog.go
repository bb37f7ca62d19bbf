package dialog

import (
	"context"
	"fmt"
)

// Status describes the outcome of a turn for the dialog stack.
type Status int

const (
	// StatusEmpty indicates that the stack was empty
	StatusEmpty Status = iota
	// StatusWaiting indicates that the active dialog is waiting for input
	StatusWaiting
	// StatusComplete indicates that the root dialog completed
	StatusComplete
	// StatusCancelled indicates that all dialogs were cancelled
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusWaiting:
		return "waiting"
	case StatusComplete:
		return "complete"
	case StatusCancelled:
		return "cancelled"
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

type TurnResult struct {
	Status Status
	Result any
}

// EndOfTurn ends the turn and waits for the next activity.
var EndOfTurn = TurnResult{Status: StatusWaiting}

// Reason is passed to a dialog when it is run.
type Reason int

const (
	ReasonBeginCalled Reason = iota
	ReasonContinueCalled
	ReasonEndCalled
	ReasonReplaceCalled
	ReasonCancelCalled
)

func (r Reason) String() string {
	switch r {
	case ReasonBeginCalled:
		return "beginCalled"
	case ReasonContinueCalled:
		return "continueCalled"
	case ReasonEndCalled:
		return "endCalled"
	case ReasonReplaceCalled:
		return "replaceCalled"
	case ReasonCancelCalled:
		return "cancelCalled"
	}

	return fmt.Sprintf("Reason(%d)", int(r))
}

// Dialog is a unit of conversational logic that lives on the dialog stack.
type Dialog interface {
	ID() string

	// BeginDialog is called when the dialog is pushed onto the stack
	BeginDialog(ctx context.Context, dc *Context, options any) (TurnResult, error)

	// ContinueDialog is called with a new activity while the dialog is active
	ContinueDialog(ctx context.Context, dc *Context) (TurnResult, error)

	// ResumeDialog is called when a child dialog completed
	ResumeDialog(ctx context.Context, dc *Context, reason Reason, result any) (TurnResult, error)
}

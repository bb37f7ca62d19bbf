package dialog

import (
	"context"
	"fmt"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/core"
)

// Context drives the dialog stack of a conversation for a single turn.
type Context struct {
	dialogs *Set
	tc      TurnContext
	stack   *core.DialogStack
}

func (dc *Context) TurnContext() TurnContext {
	return dc.tc
}

func (dc *Context) Converter() converter.Converter {
	return dc.dialogs.converter
}

func (dc *Context) Dialogs() *Set {
	return dc.dialogs
}

// ActiveDialog returns the instance on top of the stack, or nil.
func (dc *Context) ActiveDialog() *core.DialogInstance {
	return dc.stack.Active()
}

// Depth returns the number of dialogs on the stack.
func (dc *Context) Depth() int {
	return len(*dc.stack)
}

// BeginDialog pushes a new instance of the given dialog and starts it.
func (dc *Context) BeginDialog(ctx context.Context, id string, options any) (TurnResult, error) {
	d, err := dc.dialogs.Find(id)
	if err != nil {
		return TurnResult{}, err
	}

	dc.stack.Push(&core.DialogInstance{ID: id})

	return d.BeginDialog(ctx, dc, options)
}

// ContinueDialog forwards the current activity to the active dialog.
func (dc *Context) ContinueDialog(ctx context.Context) (TurnResult, error) {
	active := dc.ActiveDialog()
	if active == nil {
		return TurnResult{Status: StatusEmpty}, nil
	}

	d, err := dc.dialogs.Find(active.ID)
	if err != nil {
		return TurnResult{}, err
	}

	return d.ContinueDialog(ctx, dc)
}

// EndDialog pops the active dialog and resumes its parent with the given result. If there is no
// parent, the turn completes with the result.
func (dc *Context) EndDialog(ctx context.Context, result any) (TurnResult, error) {
	if dc.stack.Pop() == nil {
		return TurnResult{}, ErrNoActiveDialog
	}

	parent := dc.ActiveDialog()
	if parent == nil {
		return TurnResult{Status: StatusComplete, Result: result}, nil
	}

	d, err := dc.dialogs.Find(parent.ID)
	if err != nil {
		return TurnResult{}, err
	}

	return d.ResumeDialog(ctx, dc, ReasonEndCalled, result)
}

// ReplaceDialog ends the active dialog without resuming its parent and begins a new dialog in its place.
func (dc *Context) ReplaceDialog(ctx context.Context, id string, options any) (TurnResult, error) {
	if dc.stack.Pop() == nil {
		return TurnResult{}, ErrNoActiveDialog
	}

	return dc.BeginDialog(ctx, id, options)
}

// CancelAllDialogs clears the stack.
func (dc *Context) CancelAllDialogs(ctx context.Context) (TurnResult, error) {
	if len(*dc.stack) == 0 {
		return TurnResult{Status: StatusEmpty}, nil
	}

	*dc.stack = (*dc.stack)[:0]

	return TurnResult{Status: StatusCancelled}, nil
}

// State returns the live state of the active dialog, decoding it from the persisted form on
// first access in a turn. Changes to the returned value are persisted when the stack is flushed.
func State[S any](dc *Context) (*S, error) {
	active := dc.ActiveDialog()
	if active == nil {
		return nil, ErrNoActiveDialog
	}

	return InstanceState[S](dc.Converter(), active)
}

// InstanceState returns the live state of the given instance.
func InstanceState[S any](c converter.Converter, di *core.DialogInstance) (*S, error) {
	if v := di.Value(); v != nil {
		s, ok := v.(*S)
		if !ok {
			return nil, fmt.Errorf("%w: dialog %q holds %T", ErrUnexpectedDialogType, di.ID, v)
		}

		return s, nil
	}

	s := new(S)
	if err := c.From(di.State, s); err != nil {
		return nil, fmt.Errorf("decoding state of dialog %q: %w", di.ID, err)
	}

	di.SetValue(s)

	return s, nil
}

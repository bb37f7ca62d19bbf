package worker

import (
	"context"
	"fmt"

	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/dialog"
	wf "github.com/cschleiden/go-dialogflow/workflow"
	"github.com/cschleiden/go-dialogflow/workflow/executor"
)

// WorkflowDialog hosts a workflow function on the dialog stack. Every turn the workflow is replayed from
// its recorded history and driven forward until it suspends or completes.
type WorkflowDialog[O, R any] struct {
	id   string
	fn   executor.WorkflowFunc
	opts []executor.Option
}

var _ dialog.Dialog = (*WorkflowDialog[any, any])(nil)

func NewWorkflowDialog[O, R any](id string, fn wf.Workflow[O, R], opts ...executor.Option) *WorkflowDialog[O, R] {
	return &WorkflowDialog[O, R]{
		id: id,
		fn: func(ctx wf.Context) (any, error) {
			o, err := wf.Options[O](ctx)
			if err != nil {
				return nil, fmt.Errorf("decoding workflow options: %w", err)
			}

			return fn(ctx, o)
		},
		opts: opts,
	}
}

func (d *WorkflowDialog[O, R]) ID() string {
	return d.id
}

// BeginDialog starts a new instance of the workflow with the given options and an empty history.
func (d *WorkflowDialog[O, R]) BeginDialog(ctx context.Context, dc *dialog.Context, options any) (dialog.TurnResult, error) {
	p, err := dc.Converter().To(options)
	if err != nil {
		return dialog.TurnResult{}, fmt.Errorf("encoding options of workflow %q: %w", d.id, err)
	}

	state := core.NewWorkflowState(p)
	dc.ActiveDialog().SetValue(state)

	return d.executor(dc, state).Run(ctx, d.fn, dialog.ReasonBeginCalled, nil)
}

// ContinueDialog resumes the workflow with the inbound activity. Activities other than messages end
// the turn without touching the workflow.
func (d *WorkflowDialog[O, R]) ContinueDialog(ctx context.Context, dc *dialog.Context) (dialog.TurnResult, error) {
	if dc.TurnContext().Activity().Type != dialog.ActivityTypeMessage {
		return dialog.EndOfTurn, nil
	}

	return d.ResumeDialog(ctx, dc, dialog.ReasonContinueCalled, nil)
}

// ResumeDialog resumes the workflow, either with the result of a child dialog or with the inbound activity.
func (d *WorkflowDialog[O, R]) ResumeDialog(ctx context.Context, dc *dialog.Context, reason dialog.Reason, result any) (dialog.TurnResult, error) {
	state, err := dialog.State[core.WorkflowState](dc)
	if err != nil {
		return dialog.TurnResult{}, err
	}

	return d.executor(dc, state).Run(ctx, d.fn, reason, result)
}

func (d *WorkflowDialog[O, R]) executor(dc *dialog.Context, state *core.WorkflowState) *executor.Executor {
	opts := append([]executor.Option{executor.WithConverter(dc.Converter())}, d.opts...)
	return executor.New(dc, state, opts...)
}

package workflow

import (
	"context"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/backend/payload"
	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/internal/task"
)

type invokeFunc func(ctx context.Context, tc dialog.TurnContext, c converter.Converter) (payload.Payload, error)

type continuation func(ctx context.Context, tc dialog.TurnContext, c converter.Converter, p payload.Payload) (payload.Payload, error)

// configurable effects can be copied with a different retry policy, identity, or continuation.
type configurable interface {
	task.Effect

	withRetry(policy RetryPolicy) task.Effect
	withID(id string) task.Effect
	then(cont continuation) task.Effect
}

// callEffect is executed immediately within the turn.
type callEffect struct {
	kind  string
	id    string
	fn    invokeFunc
	retry RetryPolicy
}

var (
	_ task.Async   = callEffect{}
	_ configurable = callEffect{}
)

func (e callEffect) Kind() string {
	return e.kind
}

func (e callEffect) ID() string {
	return e.id
}

func (e callEffect) Invoke(ctx context.Context, tc dialog.TurnContext, c converter.Converter) history.Result {
	return applyRetryPolicy(ctx, e.retry, func() (payload.Payload, error) {
		return e.fn(ctx, tc, c)
	})
}

func (e callEffect) withRetry(policy RetryPolicy) task.Effect {
	e.retry = policy
	return e
}

func (e callEffect) withID(id string) task.Effect {
	e.id = id
	return e
}

func (e callEffect) then(cont continuation) task.Effect {
	inner := e.fn
	e.fn = func(ctx context.Context, tc dialog.TurnContext, c converter.Converter) (payload.Payload, error) {
		p, err := inner(ctx, tc, c)
		if err != nil {
			return nil, err
		}

		return cont(ctx, tc, c, p)
	}

	return e
}

type suspendFunc func(ctx context.Context, dc *dialog.Context) (dialog.TurnResult, error)

type resumeFunc func(ctx context.Context, tc dialog.TurnContext, c converter.Converter, resumeResult any, retry RetryPolicy) (history.Result, error)

// suspendEffect hands control back to the host and is resumed in a later turn.
type suspendEffect struct {
	kind    string
	id      string
	suspend suspendFunc
	resume  resumeFunc
	retry   RetryPolicy
}

var (
	_ task.Suspending = suspendEffect{}
	_ configurable    = suspendEffect{}
)

func (e suspendEffect) Kind() string {
	return e.kind
}

func (e suspendEffect) ID() string {
	return e.id
}

func (e suspendEffect) OnSuspend(ctx context.Context, dc *dialog.Context) (dialog.TurnResult, error) {
	return e.suspend(ctx, dc)
}

func (e suspendEffect) OnResume(ctx context.Context, tc dialog.TurnContext, c converter.Converter, resumeResult any) (history.Result, error) {
	return e.resume(ctx, tc, c, resumeResult, e.retry)
}

func (e suspendEffect) withRetry(policy RetryPolicy) task.Effect {
	e.retry = policy
	return e
}

func (e suspendEffect) withID(id string) task.Effect {
	e.id = id
	return e
}

func (e suspendEffect) then(cont continuation) task.Effect {
	inner := e.resume
	e.resume = func(ctx context.Context, tc dialog.TurnContext, c converter.Converter, resumeResult any, retry RetryPolicy) (history.Result, error) {
		r, err := inner(ctx, tc, c, resumeResult, retry)
		if err != nil || !r.Success {
			return r, err
		}

		return applyRetryPolicy(ctx, retry, func() (payload.Payload, error) {
			return cont(ctx, tc, c, r.Value)
		}), nil
	}

	return e
}

// encodeResumeResult persists the value a suspension was resumed with.
func encodeResumeResult(c converter.Converter, v any) history.Result {
	p, err := c.To(v)
	if err != nil {
		return history.Failed(err)
	}

	return history.Succeeded(p)
}

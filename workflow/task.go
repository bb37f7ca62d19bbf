package workflow

import (
	"context"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/payload"
	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/internal/task"
	"github.com/cschleiden/go-dialogflow/internal/workflowerrors"
)

// Task is an effect that workflow code awaits. Tasks are immutable, every builder method returns a
// modified copy.
type Task[T any] struct {
	effect task.Effect
	decode func(c converter.Converter, p payload.Payload) (T, error)
}

func newTask[R, O any](effect task.Effect, codec Codec[R, O]) Task[O] {
	return Task[O]{
		effect: effect,
		decode: codec.Decode,
	}
}

// Kind returns the kind recorded in the history for this task.
func (t Task[T]) Kind() string {
	return t.effect.Kind()
}

// ID returns the persistent identifier of this task.
func (t Task[T]) ID() string {
	return t.effect.ID()
}

// WithRetry returns a copy of the task that retries failed invocations according to the given policy.
func (t Task[T]) WithRetry(policy RetryPolicy) Task[T] {
	if e, ok := t.effect.(configurable); ok {
		t.effect = e.withRetry(policy)
	}

	return t
}

// WithRetrySettings returns a copy of the task that retries failed invocations with the given settings.
func (t Task[T]) WithRetrySettings(settings RetrySettings) Task[T] {
	return t.WithRetry(NewRetryPolicy(settings))
}

// WithDefaultRetry returns a copy of the task using DefaultRetrySettings.
func (t Task[T]) WithDefaultRetry() Task[T] {
	return t.WithRetrySettings(DefaultRetrySettings)
}

// WithID returns a copy of the task with an explicit persistent identifier. Use this to keep the
// identity of an effect stable when the function it calls is renamed or moved.
func (t Task[T]) WithID(id string) Task[T] {
	if e, ok := t.effect.(configurable); ok {
		t.effect = e.withID(id)
	}

	return t
}

// Await yields the task to the executor and returns its outcome. Failed outcomes are returned as
// *Error, both on the first execution and when replayed.
func (t Task[T]) Await(ctx Context) (T, error) {
	s := ctx.state()

	r := s.Yield(t.effect)
	if !r.Success {
		return *new(T), workflowerrors.New(r.Error)
	}

	v, err := t.decode(s.Converter(), r.Value)
	if err != nil {
		s.Diverged("decoding %s result: %v", t.effect.Kind(), err)
	}

	return v, nil
}

// Await yields the task to the executor and returns its outcome.
func Await[T any](ctx Context, t Task[T]) (T, error) {
	return t.Await(ctx)
}

// Project transforms the value of a task after it has been decoded. Projections are not persisted
// and may change between versions of a workflow.
func Project[T, O any](t Task[T], fn func(T) O) Task[O] {
	decode := t.decode

	return Task[O]{
		effect: t.effect,
		decode: func(c converter.Converter, p payload.Payload) (O, error) {
			v, err := decode(c, p)
			if err != nil {
				return *new(O), err
			}

			return fn(v), nil
		},
	}
}

// Then chains a continuation that runs live right after the task produced its value. The
// continuation's outcome replaces the task's outcome in the history, is covered by the task's retry
// policy, and is never re-executed on replay.
func Then[T, O any](t Task[T], fn func(ctx context.Context, tc dialog.TurnContext, v T) (O, error)) Task[O] {
	e, ok := t.effect.(configurable)
	if !ok {
		panic("task does not support continuations")
	}

	decode := t.decode
	cont := func(ctx context.Context, tc dialog.TurnContext, c converter.Converter, p payload.Payload) (payload.Payload, error) {
		v, err := decode(c, p)
		if err != nil {
			return nil, err
		}

		o, err := fn(ctx, tc, v)
		if err != nil {
			return nil, err
		}

		return c.To(o)
	}

	return newTask(e.then(cont), JSONCodec[O]())
}

package workflow

import (
	"fmt"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/backend/payload"
	"github.com/cschleiden/go-dialogflow/internal/args"
	"github.com/cschleiden/go-dialogflow/internal/fn"
	"github.com/cschleiden/go-dialogflow/internal/workflowerrors"
)

// BoundFunc is a synchronous, possibly non-deterministic function lifted into a replayable effect.
// Each call is executed once, later replays return the recorded outcome.
//
// The identity of a call is the fully qualified function name and its JSON encoded arguments.
// Calling a bound function with different arguments at the same position of a replay is a divergence.
type BoundFunc[O any] struct {
	ctx    Context
	fn     any
	name   string
	err    error
	encode func(c converter.Converter, v any) (payload.Payload, error)
	decode func(c converter.Converter, p payload.Payload) (O, error)
}

// Bind lifts fn into a replayable effect. fn may return (R, error), R, or error.
func Bind[R any](ctx Context, f any) *BoundFunc[R] {
	return BindWithCodec(ctx, f, JSONCodec[R]())
}

// BindWithCodec is like Bind, but persists results using the given codec.
func BindWithCodec[R, O any](ctx Context, f any, codec Codec[R, O]) *BoundFunc[O] {
	b := &BoundFunc[O]{
		ctx: ctx,
		fn:  f,
		encode: func(c converter.Converter, v any) (payload.Payload, error) {
			if v == nil {
				return codec.Encode(c, *new(R))
			}

			r, ok := v.(R)
			if !ok {
				return nil, fmt.Errorf("bound function returned %T, expected %T", v, *new(R))
			}

			return codec.Encode(c, r)
		},
		decode: codec.Decode,
	}

	if b.err = args.ReturnTypeMatch[R](f); b.err == nil {
		b.name = fn.FullName(f)
	}

	return b
}

// WithName overrides the name used to identify calls of the bound function.
func (b *BoundFunc[O]) WithName(name string) *BoundFunc[O] {
	c := *b
	c.name = name
	return &c
}

// Call invokes the bound function, or returns the recorded outcome during replay. A failed call is
// returned as *Error.
func (b *BoundFunc[O]) Call(a ...any) (O, error) {
	if b.err != nil {
		return *new(O), fmt.Errorf("calling %s: %w", b.name, b.err)
	}

	if err := args.ParamsMatch(b.fn, a...); err != nil {
		return *new(O), fmt.Errorf("calling %s: %w", b.name, err)
	}

	s := b.ctx.state()
	c := s.Converter()

	sig, err := args.Signature(c, b.name, a...)
	if err != nil {
		return *new(O), fmt.Errorf("calling %s: %w", b.name, err)
	}

	r := s.Record(history.KindBoundFunc, history.HashID(sig), func() history.Result {
		v, err := callSafely(b.fn, a...)
		if err != nil {
			return history.Failed(err)
		}

		p, err := b.encode(c, v)
		if err != nil {
			return history.Failed(err)
		}

		return history.Succeeded(p)
	})

	if !r.Success {
		return *new(O), workflowerrors.New(r.Error)
	}

	v, err := b.decode(c, r.Value)
	if err != nil {
		s.Diverged("decoding result of %s: %v", b.name, err)
	}

	return v, nil
}

func callSafely(f any, a ...any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = workflowerrors.NewPanicError(r)
		}
	}()

	return args.Call(f, a...)
}

// ProjectBound returns a function that calls the bound function and transforms its value. The
// projection is not persisted.
func ProjectBound[R, O any](b *BoundFunc[R], project func(R) O) func(a ...any) (O, error) {
	return func(a ...any) (O, error) {
		v, err := b.Call(a...)
		if err != nil {
			return *new(O), err
		}

		return project(v), nil
	}
}

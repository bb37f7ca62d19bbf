package workflow

import (
	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/payload"
)

// Codec converts the raw result R of an effect into its persisted form, and the persisted form
// into the value O observed by workflow code.
type Codec[R, O any] struct {
	Encode func(c converter.Converter, v R) (payload.Payload, error)
	Decode func(c converter.Converter, p payload.Payload) (O, error)
}

// JSONCodec persists values using the converter of the workflow.
func JSONCodec[T any]() Codec[T, T] {
	return Codec[T, T]{
		Encode: func(c converter.Converter, v T) (payload.Payload, error) {
			return c.To(v)
		},
		Decode: converter.Decode[T],
	}
}

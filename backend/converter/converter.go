package converter

import (
	"github.com/cschleiden/go-dialogflow/backend/payload"
)

// Converter serializes effect results, options, and dialog state.
type Converter interface {
	// To converts the given value to a payload
	To(v any) (payload.Payload, error)

	// From converts the given payload to a value. An empty payload leaves the value untouched.
	From(data payload.Payload, v any) error
}

var DefaultConverter Converter = &jsonConverter{}

// Decode converts the given payload into a new value of type T.
func Decode[T any](c Converter, data payload.Payload) (T, error) {
	var v T
	if err := c.From(data, &v); err != nil {
		return *new(T), err
	}

	return v, nil
}

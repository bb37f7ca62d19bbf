package backend

import (
	"time"
)

type RemovalOptions struct {
	UpdatedBefore time.Time
}

type RemovalOption func(o *RemovalOptions)

// RemoveUpdatedBefore removes conversations that have not been updated since the given time.
func RemoveUpdatedBefore(t time.Time) RemovalOption {
	return func(o *RemovalOptions) {
		o.UpdatedBefore = t
	}
}

func ApplyRemovalOptions(opts ...RemovalOption) RemovalOptions {
	o := RemovalOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

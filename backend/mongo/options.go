package mongo

import (
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
)

type MongoOptions struct {
	backend.Options

	// Collection holding the conversation documents. Defaults to "conversations".
	Collection string

	ConnectTimeout time.Duration
}

type MongoBackendOption func(*MongoOptions)

func WithCollection(collection string) MongoBackendOption {
	return func(o *MongoOptions) {
		o.Collection = collection
	}
}

func WithConnectTimeout(timeout time.Duration) MongoBackendOption {
	return func(o *MongoOptions) {
		o.ConnectTimeout = timeout
	}
}

func WithBackendOptions(opts ...backend.BackendOption) MongoBackendOption {
	return func(o *MongoOptions) {
		for _, opt := range opts {
			opt(&o.Options)
		}
	}
}

package redis

import (
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
)

type RedisOptions struct {
	backend.Options

	// AutoExpiration is the duration after which conversations that have not been saved expire from
	// the data store. If set to 0 (default), conversations never expire and need to be removed manually.
	AutoExpiration time.Duration

	KeyPrefix string
}

type RedisBackendOption func(*RedisOptions)

func WithBackendOptions(opts ...backend.BackendOption) RedisBackendOption {
	return func(o *RedisOptions) {
		for _, opt := range opts {
			opt(&o.Options)
		}
	}
}

// WithAutoExpiration sets the duration after which idle conversations will expire from the data store.
// If set to 0 (default), conversations will never expire and need to be manually removed.
func WithAutoExpiration(expireIdleConversationsAfter time.Duration) RedisBackendOption {
	return func(o *RedisOptions) {
		o.AutoExpiration = expireIdleConversationsAfter
	}
}

func WithKeyPrefix(keyPrefix string) RedisBackendOption {
	return func(o *RedisOptions) {
		o.KeyPrefix = keyPrefix
	}
}

package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/metrics"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/internal/metrickeys"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

var _ backend.Backend = (*redisBackend)(nil)

func NewRedisBackend(client redis.UniversalClient, opts ...RedisBackendOption) (*redisBackend, error) {
	// Default options
	options := &RedisOptions{
		Options: backend.ApplyOptions(),
	}

	for _, opt := range opts {
		opt(options)
	}

	rb := &redisBackend{
		rdb:     client,
		options: options,
		keys:    newKeys(options.KeyPrefix),
	}

	// Preload scripts here. Usually redis-go attempts to execute them first, and if redis doesn't know
	// them, loads them. This doesn't work when using (transactional) pipelines, so eagerly load them on startup.
	if err := saveConversationCmd.Load(context.Background(), rb.rdb).Err(); err != nil {
		return nil, fmt.Errorf("loading redis script: %w", err)
	}

	return rb, nil
}

type redisBackend struct {
	rdb     redis.UniversalClient
	options *RedisOptions
	keys    *keys
}

func (rb *redisBackend) Metrics() metrics.Client {
	return rb.options.Metrics.WithTags(metrics.Tags{metrickeys.Backend: "redis"})
}

func (rb *redisBackend) Tracer() trace.Tracer {
	return rb.options.TracerProvider.Tracer(backend.TracerName)
}

func (rb *redisBackend) Options() *backend.Options {
	return &rb.options.Options
}

func (rb *redisBackend) Close() error {
	return rb.rdb.Close()
}

func (rb *redisBackend) GetConversationState(ctx context.Context, conversationID string) (*core.ConversationState, error) {
	fields, err := rb.rdb.HGetAll(ctx, rb.keys.conversationKey(conversationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting conversation state: %w", err)
	}

	if len(fields) == 0 {
		return nil, backend.ErrConversationNotFound
	}

	return rb.decodeConversation(conversationID, fields)
}

func (rb *redisBackend) decodeConversation(conversationID string, fields map[string]string) (*core.ConversationState, error) {
	state := &core.ConversationState{
		ConversationID: conversationID,
		DialogStack:    core.DialogStack{},
	}

	var err error
	if state.Version, err = strconv.ParseInt(fields["version"], 10, 64); err != nil {
		return nil, fmt.Errorf("parsing version of %q: %w", conversationID, err)
	}

	if state.CreatedAt, err = parseMillis(fields["created_at"]); err != nil {
		return nil, fmt.Errorf("parsing creation time of %q: %w", conversationID, err)
	}

	if state.UpdatedAt, err = parseMillis(fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("parsing update time of %q: %w", conversationID, err)
	}

	if err := rb.options.Converter.From([]byte(fields["stack"]), &state.DialogStack); err != nil {
		return nil, fmt.Errorf("decoding dialog stack: %w", err)
	}

	return state, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.UnixMilli(ms).UTC(), nil
}

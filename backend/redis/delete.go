package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cschleiden/go-dialogflow/backend"
	redis "github.com/redis/go-redis/v9"
)

const removalBatchSize = 100

func (rb *redisBackend) RemoveConversationState(ctx context.Context, conversationID string) error {
	var del *redis.IntCmd

	_, err := rb.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, rb.keys.conversationKey(conversationID))
		rb.removeFromIndexes(ctx, p, conversationID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("removing conversation state: %w", err)
	}

	if del.Val() == 0 {
		return backend.ErrConversationNotFound
	}

	return nil
}

func (rb *redisBackend) RemoveConversationStates(ctx context.Context, options ...backend.RemovalOption) error {
	o := backend.ApplyRemovalOptions(options...)

	max := "+inf"
	if !o.UpdatedBefore.IsZero() {
		max = "(" + strconv.FormatInt(o.UpdatedBefore.UnixMilli(), 10)
	}

	for {
		ids, err := rb.rdb.ZRangeByScore(ctx, rb.keys.conversationsByUpdate(), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   max,
			Count: removalBatchSize,
		}).Result()
		if err != nil {
			return fmt.Errorf("finding conversations to remove: %w", err)
		}

		if len(ids) == 0 {
			return nil
		}

		if _, err := rb.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, id := range ids {
				p.Del(ctx, rb.keys.conversationKey(id))
				rb.removeFromIndexes(ctx, p, id)
			}

			return nil
		}); err != nil {
			return fmt.Errorf("removing conversation states: %w", err)
		}
	}
}

func (rb *redisBackend) removeFromIndexes(ctx context.Context, p redis.Pipeliner, conversationID string) {
	p.ZRem(ctx, rb.keys.conversationsByCreation(), conversationID)
	p.ZRem(ctx, rb.keys.conversationsByUpdate(), conversationID)
	p.SRem(ctx, rb.keys.conversationsActive(), conversationID)
}

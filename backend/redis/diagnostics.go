package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/diag"
	redis "github.com/redis/go-redis/v9"
)

var _ diag.Backend = (*redisBackend)(nil)

func (rb *redisBackend) GetConversations(ctx context.Context, afterConversationID string, count int) ([]*diag.ConversationRef, error) {
	start := int64(0)

	if afterConversationID != "" {
		rank, err := rb.rdb.ZRevRank(ctx, rb.keys.conversationsByCreation(), afterConversationID).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, backend.ErrConversationNotFound
			}

			return nil, fmt.Errorf("getting rank of %v: %w", afterConversationID, err)
		}

		start = rank + 1
	}

	// Members with equal scores are ordered by id, reversed along with the scores.
	ids, err := rb.rdb.ZRevRange(ctx, rb.keys.conversationsByCreation(), start, start+int64(count)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("getting conversations: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	if _, err := rb.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, rb.keys.conversationKey(id))
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("getting conversation states: %w", err)
	}

	refs := make([]*diag.ConversationRef, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Expired, the index is cleaned up on the next save
			continue
		}

		state, err := rb.decodeConversation(ids[i], fields)
		if err != nil {
			return nil, err
		}

		refs = append(refs, diag.NewConversationRef(state))
	}

	return refs, nil
}

package redis

import (
	"context"
	"fmt"

	"github.com/cschleiden/go-dialogflow/backend"
)

func (rb *redisBackend) GetStats(ctx context.Context) (*backend.Stats, error) {
	var err error

	s := &backend.Stats{}

	s.Conversations, err = rb.rdb.ZCard(ctx, rb.keys.conversationsByCreation()).Result()
	if err != nil {
		return nil, fmt.Errorf("getting conversations: %w", err)
	}

	s.ActiveConversations, err = rb.rdb.SCard(ctx, rb.keys.conversationsActive()).Result()
	if err != nil {
		return nil, fmt.Errorf("getting active conversations: %w", err)
	}

	return s, nil
}

package client

import (
	"context"
	"fmt"
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
)

// RemoveIdleConversations removes all conversations that have not been saved for the given duration.
func (c *Client) RemoveIdleConversations(ctx context.Context, maxIdle time.Duration) error {
	before := c.clock.Now().Add(-maxIdle)

	if err := c.backend.RemoveConversationStates(ctx, backend.RemoveUpdatedBefore(before)); err != nil {
		return fmt.Errorf("removing idle conversations: %w", err)
	}

	return nil
}

// RunAutoExpiration removes idle conversations every interval until the context is canceled.
func (c *Client) RunAutoExpiration(ctx context.Context, maxIdle, interval time.Duration) error {
	t := c.clock.Ticker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-t.C:
			if err := c.RemoveIdleConversations(ctx, maxIdle); err != nil {
				c.backend.Options().Logger.Error("Could not expire conversations", "error", err)
			}
		}
	}
}

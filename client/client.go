package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/internal/tracing"
	"github.com/cschleiden/go-dialogflow/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found on dialog stack")
	ErrNotIdle          = errors.New("conversation did not become idle in specified timeout")
)

// Client inspects and manages conversations stored in a backend, outside of a turn.
type Client struct {
	backend backend.Backend
	clock   clock.Clock
}

func New(b backend.Backend) *Client {
	return &Client{
		backend: b,
		clock:   b.Options().Clock,
	}
}

// GetConversation returns the persisted state of the given conversation.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*core.ConversationState, error) {
	ctx, span := c.backend.Tracer().Start(ctx, "GetConversation", trace.WithAttributes(
		attribute.String(tracing.ConversationID, conversationID),
	))
	defer span.End()

	s, err := c.backend.GetConversationState(ctx, conversationID)
	if err != nil {
		return nil, tracing.WithSpanError(span, err)
	}

	return s, nil
}

// GetWorkflowState returns the state of the top-most workflow dialog with the given id.
func (c *Client) GetWorkflowState(ctx context.Context, conversationID, dialogID string) (*core.WorkflowState, error) {
	s, err := c.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	for i := len(s.DialogStack) - 1; i >= 0; i-- {
		di := s.DialogStack[i]
		if di.ID != dialogID {
			continue
		}

		ws, err := dialog.InstanceState[core.WorkflowState](c.backend.Options().Converter, di)
		if err != nil {
			return nil, fmt.Errorf("decoding workflow state: %w", err)
		}

		return ws, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, dialogID)
}

// ResetConversation removes the conversation, the next activity starts it from scratch.
func (c *Client) ResetConversation(ctx context.Context, conversationID string) error {
	ctx, span := c.backend.Tracer().Start(ctx, "ResetConversation", trace.WithAttributes(
		attribute.String(tracing.ConversationID, conversationID),
	))
	defer span.End()

	if err := c.backend.RemoveConversationState(ctx, conversationID); err != nil {
		return tracing.WithSpanError(span, err)
	}

	c.backend.Options().Logger.Debug("Reset conversation", log.ConversationIDKey, conversationID)

	return nil
}

// CancelAllDialogs clears the dialog stack of the conversation. Returns backend.ErrConflict if a turn
// saved the conversation concurrently.
func (c *Client) CancelAllDialogs(ctx context.Context, conversationID string) error {
	ctx, span := c.backend.Tracer().Start(ctx, "CancelAllDialogs", trace.WithAttributes(
		attribute.String(tracing.ConversationID, conversationID),
	))
	defer span.End()

	s, err := c.backend.GetConversationState(ctx, conversationID)
	if err != nil {
		return tracing.WithSpanError(span, err)
	}

	s.DialogStack = core.DialogStack{}

	if err := c.backend.SaveConversationState(ctx, s); err != nil {
		return tracing.WithSpanError(span, fmt.Errorf("saving conversation state: %w", err))
	}

	return nil
}

// WaitForConversationIdle waits until the conversation has no active dialog or until the given timeout
// has expired.
func (c *Client) WaitForConversationIdle(ctx context.Context, conversationID string, timeout time.Duration) error {
	if timeout == 0 {
		timeout = time.Second * 20
	}

	ctx, span := c.backend.Tracer().Start(ctx, "WaitForConversationIdle", trace.WithAttributes(
		attribute.String(tracing.ConversationID, conversationID),
	))
	defer span.End()

	b := backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond * 1,
		MaxInterval:         time.Second * 1,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      timeout,
		Stop:                backoff.Stop,
		Clock:               c.clock,
	}
	b.Reset()

	ticker := backoff.NewTicker(&b)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case _, ok := <-ticker.C:
			if !ok {
				return ErrNotIdle
			}

			s, err := c.backend.GetConversationState(ctx, conversationID)
			if err != nil {
				if errors.Is(err, backend.ErrConversationNotFound) {
					continue
				}

				return fmt.Errorf("getting conversation state: %w", err)
			}

			if len(s.DialogStack) == 0 {
				return nil
			}
		}
	}
}

// GetStats returns statistics about the conversations in the backend.
func (c *Client) GetStats(ctx context.Context) (*backend.Stats, error) {
	return c.backend.GetStats(ctx)
}

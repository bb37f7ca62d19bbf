package backend

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/trace"

	"github.com/cschleiden/go-dialogflow/backend/metrics"
	"github.com/cschleiden/go-dialogflow/core"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrConflict is returned when the persisted state was modified after it was loaded
	ErrConflict = errors.New("conversation state was modified concurrently")
)

const TracerName = "go-dialogflow"

// Backend persists the state of conversations between turns.
//
// Saves use optimistic concurrency: a state can only be saved if its Version matches the persisted
// version. A state with Version 0 must not exist yet.
type Backend interface {
	// GetConversationState returns the state of the given conversation, or ErrConversationNotFound
	GetConversationState(ctx context.Context, conversationID string) (*core.ConversationState, error)

	// SaveConversationState persists the given state. On success, Version is incremented and
	// UpdatedAt is set. If the state was modified since it was loaded, ErrConflict is returned.
	SaveConversationState(ctx context.Context, state *core.ConversationState) error

	// RemoveConversationState removes the state of the given conversation
	RemoveConversationState(ctx context.Context, conversationID string) error

	// RemoveConversationStates removes all conversations matching the given options
	RemoveConversationStates(ctx context.Context, options ...RemovalOption) error

	// GetStats returns stats about the backend
	GetStats(ctx context.Context) (*Stats, error)

	// Tracer returns the configured trace provider for the backend
	Tracer() trace.Tracer

	// Metrics returns the configured metrics client for the backend
	Metrics() metrics.Client

	// Options returns the configured options for the backend
	Options() *Options

	// Close closes any underlying resources
	Close() error
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/metrics"
	"github.com/cschleiden/go-dialogflow/backend/payload"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/diag"
	"github.com/cschleiden/go-dialogflow/internal/metrickeys"
	"go.opentelemetry.io/otel/trace"
)

// record is the persisted form of a conversation. The stack is kept encoded, so that callers never
// share dialog state with the backend.
type record struct {
	version   int64
	stack     payload.Payload
	depth     int
	createdAt time.Time
	updatedAt time.Time
}

type memoryBackend struct {
	mu            sync.RWMutex
	conversations map[string]*record
	options       backend.Options
}

var _ diag.Backend = (*memoryBackend)(nil)

// NewMemoryBackend returns a backend that keeps all conversations in memory. State is lost when the
// process exits.
func NewMemoryBackend(opts ...backend.BackendOption) *memoryBackend {
	return &memoryBackend{
		conversations: make(map[string]*record),
		options:       backend.ApplyOptions(opts...),
	}
}

func (mb *memoryBackend) GetConversationState(ctx context.Context, conversationID string) (*core.ConversationState, error) {
	mb.mu.RLock()
	r, ok := mb.conversations[conversationID]
	mb.mu.RUnlock()

	if !ok {
		return nil, backend.ErrConversationNotFound
	}

	return mb.decode(conversationID, r)
}

func (mb *memoryBackend) decode(conversationID string, r *record) (*core.ConversationState, error) {
	stack := core.DialogStack{}
	if err := mb.options.Converter.From(r.stack, &stack); err != nil {
		return nil, fmt.Errorf("decoding dialog stack: %w", err)
	}

	return &core.ConversationState{
		ConversationID: conversationID,
		Version:        r.version,
		DialogStack:    stack,
		CreatedAt:      r.createdAt,
		UpdatedAt:      r.updatedAt,
	}, nil
}

func (mb *memoryBackend) SaveConversationState(ctx context.Context, state *core.ConversationState) error {
	stack, err := mb.options.Converter.To(state.DialogStack)
	if err != nil {
		return fmt.Errorf("encoding dialog stack: %w", err)
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	existing, ok := mb.conversations[state.ConversationID]
	if ok && existing.version != state.Version || !ok && state.Version != 0 {
		return backend.ErrConflict
	}

	now := mb.options.Clock.Now().UTC()

	createdAt := state.CreatedAt
	if ok {
		createdAt = existing.createdAt
	} else if createdAt.IsZero() {
		createdAt = now
	}

	mb.conversations[state.ConversationID] = &record{
		version:   state.Version + 1,
		stack:     stack,
		depth:     len(state.DialogStack),
		createdAt: createdAt,
		updatedAt: now,
	}

	state.Version++
	state.CreatedAt = createdAt
	state.UpdatedAt = now

	return nil
}

func (mb *memoryBackend) RemoveConversationState(ctx context.Context, conversationID string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, ok := mb.conversations[conversationID]; !ok {
		return backend.ErrConversationNotFound
	}

	delete(mb.conversations, conversationID)

	return nil
}

func (mb *memoryBackend) RemoveConversationStates(ctx context.Context, options ...backend.RemovalOption) error {
	o := backend.ApplyRemovalOptions(options...)

	mb.mu.Lock()
	defer mb.mu.Unlock()

	for id, r := range mb.conversations {
		if o.UpdatedBefore.IsZero() || r.updatedAt.Before(o.UpdatedBefore) {
			delete(mb.conversations, id)
		}
	}

	return nil
}

func (mb *memoryBackend) GetStats(ctx context.Context) (*backend.Stats, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	s := &backend.Stats{
		Conversations: int64(len(mb.conversations)),
	}

	for _, r := range mb.conversations {
		if r.depth > 0 {
			s.ActiveConversations++
		}
	}

	return s, nil
}

func (mb *memoryBackend) GetConversations(ctx context.Context, afterConversationID string, count int) ([]*diag.ConversationRef, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	refs := make([]*diag.ConversationRef, 0, len(mb.conversations))
	for id, r := range mb.conversations {
		state, err := mb.decode(id, r)
		if err != nil {
			return nil, err
		}

		refs = append(refs, diag.NewConversationRef(state))
	}

	sort.Slice(refs, func(i, j int) bool {
		return newerThan(refs[i], refs[j])
	})

	if afterConversationID != "" {
		after, ok := mb.conversations[afterConversationID]
		if !ok {
			return nil, backend.ErrConversationNotFound
		}

		cursor := &diag.ConversationRef{ConversationID: afterConversationID, CreatedAt: after.createdAt}

		i := sort.Search(len(refs), func(i int) bool {
			return newerThan(cursor, refs[i])
		})
		refs = refs[i:]
	}

	if len(refs) > count {
		refs = refs[:count]
	}

	return refs, nil
}

// newerThan orders conversations by creation time, descending, then by id.
func newerThan(a, b *diag.ConversationRef) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}

	return a.ConversationID > b.ConversationID
}

func (mb *memoryBackend) Tracer() trace.Tracer {
	return mb.options.TracerProvider.Tracer(backend.TracerName)
}

func (mb *memoryBackend) Metrics() metrics.Client {
	return mb.options.Metrics.WithTags(metrics.Tags{metrickeys.Backend: "memory"})
}

func (mb *memoryBackend) Options() *backend.Options {
	return &mb.options
}

func (mb *memoryBackend) Close() error {
	return nil
}

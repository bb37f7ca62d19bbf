package diag

import (
	"context"
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/backend/payload"
	"github.com/cschleiden/go-dialogflow/core"
)

type ConversationRef struct {
	ConversationID string    `json:"conversation_id"`
	Version        int64     `json:"version"`
	ActiveDialog   string    `json:"active_dialog,omitempty"`
	Depth          int       `json:"depth"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewConversationRef(state *core.ConversationState) *ConversationRef {
	ref := &ConversationRef{
		ConversationID: state.ConversationID,
		Version:        state.Version,
		Depth:          len(state.DialogStack),
		CreatedAt:      state.CreatedAt,
		UpdatedAt:      state.UpdatedAt,
	}

	if active := state.DialogStack.Active(); active != nil {
		ref.ActiveDialog = active.ID
	}

	return ref
}

type Dialog struct {
	ID string `json:"id"`

	// Workflow is set for dialogs running a workflow
	Workflow *Workflow `json:"workflow,omitempty"`

	// State is the raw state of dialogs not running a workflow
	State payload.Payload `json:"state,omitempty"`
}

type Workflow struct {
	Options     payload.Payload      `json:"options,omitempty"`
	History     []history.Entry      `json:"history"`
	ResumeState *history.ResumeState `json:"resume_state,omitempty"`
}

type ConversationInfo struct {
	*ConversationRef

	Dialogs []*Dialog `json:"dialogs"`
}

type Backend interface {
	backend.Backend

	// GetConversations returns up to count conversations, most recently created first, starting
	// after the given conversation
	GetConversations(ctx context.Context, afterConversationID string, count int) ([]*ConversationRef, error)
}

package core

import (
	"fmt"
	"time"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/payload"
)

// ConversationState is the unit of persistence. It is loaded at the beginning of a turn and
// saved at the end of it.
type ConversationState struct {
	ConversationID string `json:"conversationId"`

	// Version is incremented on every save, 0 denotes a state that has never been saved
	Version int64 `json:"version"`

	DialogStack DialogStack `json:"dialogStack"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewConversationState(conversationID string, now time.Time) *ConversationState {
	return &ConversationState{
		ConversationID: conversationID,
		DialogStack:    DialogStack{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// DialogInstance is one entry on the dialog stack.
type DialogInstance struct {
	ID    string          `json:"id"`
	State payload.Payload `json:"state,omitempty"`

	value any
}

// Value returns the decoded state of the instance, if it has been set or decoded during this turn.
func (di *DialogInstance) Value() any {
	return di.value
}

func (di *DialogInstance) SetValue(v any) {
	di.value = v
}

// Flush encodes the live value, if any, into the persisted state.
func (di *DialogInstance) Flush(c converter.Converter) error {
	if di.value == nil {
		return nil
	}

	p, err := c.To(di.value)
	if err != nil {
		return fmt.Errorf("encoding state of dialog %q: %w", di.ID, err)
	}

	di.State = p
	return nil
}

// DialogStack holds the active dialogs of a conversation. The last element is the active dialog.
type DialogStack []*DialogInstance

func (s *DialogStack) Push(di *DialogInstance) {
	*s = append(*s, di)
}

func (s *DialogStack) Pop() *DialogInstance {
	if len(*s) == 0 {
		return nil
	}

	di := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]

	return di
}

func (s DialogStack) Active() *DialogInstance {
	if len(s) == 0 {
		return nil
	}

	return s[len(s)-1]
}

// Flush encodes the live values of all instances on the stack.
func (s DialogStack) Flush(c converter.Converter) error {
	for _, di := range s {
		if err := di.Flush(c); err != nil {
			return err
		}
	}

	return nil
}

// Clone returns a copy of the state holding only the persisted form of each dialog instance. Live
// values are not carried over.
func (s *ConversationState) Clone() *ConversationState {
	c := *s
	c.DialogStack = make(DialogStack, 0, len(s.DialogStack))

	for _, di := range s.DialogStack {
		var state payload.Payload
		if di.State != nil {
			state = make(payload.Payload, len(di.State))
			copy(state, di.State)
		}

		c.DialogStack = append(c.DialogStack, &DialogInstance{ID: di.ID, State: state})
	}

	return &c
}

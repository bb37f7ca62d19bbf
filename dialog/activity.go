package dialog

import (
	"context"
	"time"

	"github.com/cschleiden/go-dialogflow/backend/payload"
)

type ActivityType string

const (
	ActivityTypeMessage            ActivityType = "message"
	ActivityTypeConversationUpdate ActivityType = "conversationUpdate"
	ActivityTypeEvent              ActivityType = "event"
	ActivityTypeTyping             ActivityType = "typing"
	ActivityTypeEndOfConversation  ActivityType = "endOfConversation"
)

// ChannelAccount identifies a user or bot on a channel.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Activity is an inbound or outbound conversational event.
type Activity struct {
	Type           ActivityType    `json:"type"`
	ID             string          `json:"id,omitempty"`
	Timestamp      time.Time       `json:"timestamp,omitempty"`
	ChannelID      string          `json:"channelId,omitempty"`
	ConversationID string          `json:"conversationId,omitempty"`
	From           ChannelAccount  `json:"from,omitempty"`
	Recipient      ChannelAccount  `json:"recipient,omitempty"`
	Text           string          `json:"text,omitempty"`
	Speak          string          `json:"speak,omitempty"`
	InputHint      string          `json:"inputHint,omitempty"`
	Name           string          `json:"name,omitempty"`
	Value          payload.Payload `json:"value,omitempty"`
}

// MessageActivity creates an outbound message activity with the given text.
func MessageActivity(text string) *Activity {
	return &Activity{
		Type: ActivityTypeMessage,
		Text: text,
	}
}

// ResourceResponse is returned by the channel for a sent activity.
type ResourceResponse struct {
	ID string `json:"id"`
}

// Adapter delivers outbound activities to a channel.
type Adapter interface {
	SendActivity(ctx context.Context, activity *Activity) (*ResourceResponse, error)
}

// TurnContext is the per-turn view of the conversation.
type TurnContext interface {
	// Activity returns the inbound activity that started this turn
	Activity() *Activity

	// SendActivity sends an activity to the conversation of the inbound activity
	SendActivity(ctx context.Context, activity *Activity) (*ResourceResponse, error)

	// Responded returns true if at least one activity was sent during this turn
	Responded() bool
}

type turnContext struct {
	activity  *Activity
	adapter   Adapter
	responded bool
}

func NewTurnContext(adapter Adapter, activity *Activity) TurnContext {
	return &turnContext{
		activity: activity,
		adapter:  adapter,
	}
}

func (tc *turnContext) Activity() *Activity {
	return tc.activity
}

func (tc *turnContext) SendActivity(ctx context.Context, activity *Activity) (*ResourceResponse, error) {
	out := *activity
	if out.Type == "" {
		out.Type = ActivityTypeMessage
	}
	if out.ChannelID == "" {
		out.ChannelID = tc.activity.ChannelID
	}
	if out.ConversationID == "" {
		out.ConversationID = tc.activity.ConversationID
	}
	if out.From.ID == "" {
		out.From = tc.activity.Recipient
	}
	if out.Recipient.ID == "" {
		out.Recipient = tc.activity.From
	}

	r, err := tc.adapter.SendActivity(ctx, &out)
	if err != nil {
		return nil, err
	}

	tc.responded = true

	return r, nil
}

func (tc *turnContext) Responded() bool {
	return tc.responded
}

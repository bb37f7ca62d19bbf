package dialog

import (
	"context"
	"testing"

	"github.com/cschleiden/go-dialogflow/core"
	"github.com/stretchr/testify/require"
)

type recordingAdapter struct {
	sent []*Activity
}

func (a *recordingAdapter) SendActivity(_ context.Context, activity *Activity) (*ResourceResponse, error) {
	a.sent = append(a.sent, activity)
	return &ResourceResponse{ID: activity.Text}, nil
}

type counterState struct {
	Turns int `json:"turns"`
}

// counterDialog counts turns and ends after the given number of turns, or when a child ends.
type counterDialog struct {
	id    string
	turns int
	child string
}

func (d *counterDialog) ID() string { return d.id }

func (d *counterDialog) BeginDialog(ctx context.Context, dc *Context, options any) (TurnResult, error) {
	if d.child != "" {
		return dc.BeginDialog(ctx, d.child, nil)
	}

	return d.ContinueDialog(ctx, dc)
}

func (d *counterDialog) ContinueDialog(ctx context.Context, dc *Context) (TurnResult, error) {
	s, err := State[counterState](dc)
	if err != nil {
		return TurnResult{}, err
	}

	s.Turns++
	if s.Turns >= d.turns {
		return dc.EndDialog(ctx, s.Turns)
	}

	return EndOfTurn, nil
}

func (d *counterDialog) ResumeDialog(ctx context.Context, dc *Context, reason Reason, result any) (TurnResult, error) {
	return dc.EndDialog(ctx, result)
}

func TestContext(t *testing.T) {
	tests := []struct {
		name string
		f    func(t *testing.T, set *Set, stack *core.DialogStack, dc *Context)
	}{
		{
			name: "continue on empty stack",
			f: func(t *testing.T, set *Set, stack *core.DialogStack, dc *Context) {
				r, err := dc.ContinueDialog(context.Background())
				require.NoError(t, err)
				require.Equal(t, StatusEmpty, r.Status)
			},
		},
		{
			name: "begin unknown dialog",
			f: func(t *testing.T, set *Set, stack *core.DialogStack, dc *Context) {
				_, err := dc.BeginDialog(context.Background(), "unknown", nil)
				require.ErrorIs(t, err, ErrDialogNotFound)
			},
		},
		{
			name: "dialog waits and completes",
			f: func(t *testing.T, set *Set, stack *core.DialogStack, dc *Context) {
				ctx := context.Background()

				r, err := dc.BeginDialog(ctx, "two", nil)
				require.NoError(t, err)
				require.Equal(t, StatusWaiting, r.Status)
				require.Equal(t, 1, dc.Depth())

				r, err = dc.ContinueDialog(ctx)
				require.NoError(t, err)
				require.Equal(t, StatusComplete, r.Status)
				require.Equal(t, 2, r.Result)
				require.Equal(t, 0, dc.Depth())
			},
		},
		{
			name: "child end resumes parent",
			f: func(t *testing.T, set *Set, stack *core.DialogStack, dc *Context) {
				ctx := context.Background()

				r, err := dc.BeginDialog(ctx, "parent", nil)
				require.NoError(t, err)
				require.Equal(t, StatusWaiting, r.Status)
				require.Equal(t, 2, dc.Depth())
				require.Equal(t, "two", dc.ActiveDialog().ID)

				r, err = dc.ContinueDialog(ctx)
				require.NoError(t, err)
				require.Equal(t, StatusComplete, r.Status)
				require.Equal(t, 2, r.Result)
			},
		},
		{
			name: "state survives flush",
			f: func(t *testing.T, set *Set, stack *core.DialogStack, dc *Context) {
				ctx := context.Background()

				_, err := dc.BeginDialog(ctx, "two", nil)
				require.NoError(t, err)
				require.NoError(t, stack.Flush(set.Converter()))
				require.JSONEq(t, `{"turns":1}`, string(stack.Active().State))

				// Simulate loading the stack in a new turn
				stack.Active().SetValue(nil)
				s, err := State[counterState](dc)
				require.NoError(t, err)
				require.Equal(t, 1, s.Turns)
			},
		},
		{
			name: "replace dialog",
			f: func(t *testing.T, set *Set, stack *core.DialogStack, dc *Context) {
				ctx := context.Background()

				_, err := dc.BeginDialog(ctx, "two", nil)
				require.NoError(t, err)

				r, err := dc.ReplaceDialog(ctx, "one", nil)
				require.NoError(t, err)
				require.Equal(t, StatusComplete, r.Status)
				require.Equal(t, 0, dc.Depth())
			},
		},
		{
			name: "cancel all dialogs",
			f: func(t *testing.T, set *Set, stack *core.DialogStack, dc *Context) {
				ctx := context.Background()

				_, err := dc.BeginDialog(ctx, "parent", nil)
				require.NoError(t, err)

				r, err := dc.CancelAllDialogs(ctx)
				require.NoError(t, err)
				require.Equal(t, StatusCancelled, r.Status)
				require.Nil(t, dc.ActiveDialog())
			},
		},
		{
			name: "end without active dialog",
			f: func(t *testing.T, set *Set, stack *core.DialogStack, dc *Context) {
				_, err := dc.EndDialog(context.Background(), nil)
				require.ErrorIs(t, err, ErrNoActiveDialog)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewSet(
				&counterDialog{id: "one", turns: 1},
				&counterDialog{id: "two", turns: 2},
				&counterDialog{id: "parent", child: "two"},
			)
			require.NoError(t, err)

			stack := &core.DialogStack{}
			tc := NewTurnContext(&recordingAdapter{}, &Activity{Type: ActivityTypeMessage})

			tt.f(t, set, stack, set.CreateContext(tc, stack))
		})
	}
}

func TestSet_Duplicate(t *testing.T) {
	_, err := NewSet(&counterDialog{id: "a"}, &counterDialog{id: "a"})
	require.ErrorIs(t, err, ErrDialogAlreadyAdded)
}

func TestTurnContext_SendActivity(t *testing.T) {
	a := &recordingAdapter{}
	tc := NewTurnContext(a, &Activity{
		Type:           ActivityTypeMessage,
		ChannelID:      "test",
		ConversationID: "c1",
		From:           ChannelAccount{ID: "user"},
		Recipient:      ChannelAccount{ID: "bot"},
	})
	require.False(t, tc.Responded())

	r, err := tc.SendActivity(context.Background(), MessageActivity("hi"))
	require.NoError(t, err)
	require.Equal(t, "hi", r.ID)
	require.True(t, tc.Responded())

	require.Len(t, a.sent, 1)
	require.Equal(t, ActivityTypeMessage, a.sent[0].Type)
	require.Equal(t, "c1", a.sent[0].ConversationID)
	require.Equal(t, "user", a.sent[0].Recipient.ID)
	require.Equal(t, "bot", a.sent[0].From.ID)
}

package test

import (
	"context"
	"testing"
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/diag"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// newState returns a conversation with a workflow dialog waiting for the next message on top of
// a plain dialog.
func newState(t *testing.T, createdAt time.Time) *core.ConversationState {
	s := core.NewConversationState(uuid.NewString(), createdAt)

	ws := core.NewWorkflowState([]byte(`{"name":"test"}`))
	ws.History = append(ws.History, history.Entry{
		Kind:     history.KindAsyncCall,
		HashedID: history.HashID("greet"),
		Result:   history.Succeeded([]byte(`{"id":"1"}`)),
	})
	ws.ResumeState = &history.ResumeState{Kind: history.KindWait, HashedID: history.HashID("")}

	root := &core.DialogInstance{ID: "root"}
	root.SetValue(map[string]int{"turns": 1})

	child := &core.DialogInstance{ID: "workflow"}
	child.SetValue(ws)

	s.DialogStack.Push(root)
	s.DialogStack.Push(child)

	require.NoError(t, s.DialogStack.Flush(backend.DefaultOptions.Converter))

	return s
}

func BackendTest(t *testing.T, setup func(t *testing.T) backend.Backend, teardown func(t *testing.T, b backend.Backend)) {
	tests := []struct {
		name string
		f    func(t *testing.T, ctx context.Context, b backend.Backend)
	}{
		{
			name: "GetConversationState_NotFound",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				_, err := b.GetConversationState(ctx, uuid.NewString())
				require.ErrorIs(t, err, backend.ErrConversationNotFound)
			},
		},
		{
			name: "SaveConversationState_RoundTrips",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				s := newState(t, time.Now().Add(-time.Minute))

				require.NoError(t, b.SaveConversationState(ctx, s))
				require.Equal(t, int64(1), s.Version)
				require.False(t, s.UpdatedAt.IsZero())

				loaded, err := b.GetConversationState(ctx, s.ConversationID)
				require.NoError(t, err)
				require.Equal(t, s.ConversationID, loaded.ConversationID)
				require.Equal(t, int64(1), loaded.Version)
				require.WithinDuration(t, s.CreatedAt, loaded.CreatedAt, time.Second)
				require.WithinDuration(t, s.UpdatedAt, loaded.UpdatedAt, time.Second)

				require.Len(t, loaded.DialogStack, 2)
				require.Equal(t, "root", loaded.DialogStack[0].ID)
				require.JSONEq(t, `{"turns":1}`, string(loaded.DialogStack[0].State))
				require.Equal(t, "workflow", loaded.DialogStack.Active().ID)

				ws, err := decodeWorkflowState(loaded.DialogStack.Active())
				require.NoError(t, err)
				require.Len(t, ws.History, 1)
				require.Equal(t, history.HashID("greet"), ws.History[0].HashedID)
				require.Equal(t, history.KindWait, ws.ResumeState.Kind)
			},
		},
		{
			name: "SaveConversationState_IncrementsVersion",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				s := newState(t, time.Now())
				require.NoError(t, b.SaveConversationState(ctx, s))

				loaded, err := b.GetConversationState(ctx, s.ConversationID)
				require.NoError(t, err)

				loaded.DialogStack.Pop()
				require.NoError(t, b.SaveConversationState(ctx, loaded))
				require.Equal(t, int64(2), loaded.Version)

				loaded, err = b.GetConversationState(ctx, s.ConversationID)
				require.NoError(t, err)
				require.Equal(t, int64(2), loaded.Version)
				require.Len(t, loaded.DialogStack, 1)
			},
		},
		{
			name: "SaveConversationState_ConflictOnStaleVersion",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				s := newState(t, time.Now())
				require.NoError(t, b.SaveConversationState(ctx, s))

				first, err := b.GetConversationState(ctx, s.ConversationID)
				require.NoError(t, err)
				second, err := b.GetConversationState(ctx, s.ConversationID)
				require.NoError(t, err)

				require.NoError(t, b.SaveConversationState(ctx, first))

				err = b.SaveConversationState(ctx, second)
				require.ErrorIs(t, err, backend.ErrConflict)
				require.Equal(t, int64(1), second.Version)
			},
		},
		{
			name: "SaveConversationState_ConflictOnExistingNewState",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				s := newState(t, time.Now())
				require.NoError(t, b.SaveConversationState(ctx, s))

				dup := core.NewConversationState(s.ConversationID, time.Now())
				err := b.SaveConversationState(ctx, dup)
				require.ErrorIs(t, err, backend.ErrConflict)
			},
		},
		{
			name: "SaveConversationState_ConflictOnRemovedState",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				s := newState(t, time.Now())
				require.NoError(t, b.SaveConversationState(ctx, s))
				require.NoError(t, b.RemoveConversationState(ctx, s.ConversationID))

				err := b.SaveConversationState(ctx, s)
				require.ErrorIs(t, err, backend.ErrConflict)
			},
		},
		{
			name: "SaveConversationState_EmptyStack",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				s := core.NewConversationState(uuid.NewString(), time.Now())
				require.NoError(t, b.SaveConversationState(ctx, s))

				loaded, err := b.GetConversationState(ctx, s.ConversationID)
				require.NoError(t, err)
				require.Empty(t, loaded.DialogStack)
			},
		},
		{
			name: "RemoveConversationState",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				s := newState(t, time.Now())
				require.NoError(t, b.SaveConversationState(ctx, s))

				require.NoError(t, b.RemoveConversationState(ctx, s.ConversationID))

				_, err := b.GetConversationState(ctx, s.ConversationID)
				require.ErrorIs(t, err, backend.ErrConversationNotFound)

				err = b.RemoveConversationState(ctx, s.ConversationID)
				require.ErrorIs(t, err, backend.ErrConversationNotFound)
			},
		},
		{
			name: "RemoveConversationStates_UpdatedBefore",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				s := newState(t, time.Now())
				require.NoError(t, b.SaveConversationState(ctx, s))

				require.NoError(t, b.RemoveConversationStates(ctx, backend.RemoveUpdatedBefore(time.Now().Add(-time.Hour))))

				_, err := b.GetConversationState(ctx, s.ConversationID)
				require.NoError(t, err)

				require.NoError(t, b.RemoveConversationStates(ctx, backend.RemoveUpdatedBefore(time.Now().Add(time.Hour))))

				_, err = b.GetConversationState(ctx, s.ConversationID)
				require.ErrorIs(t, err, backend.ErrConversationNotFound)
			},
		},
		{
			name: "GetStats",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				require.NoError(t, b.SaveConversationState(ctx, newState(t, time.Now())))
				require.NoError(t, b.SaveConversationState(ctx, core.NewConversationState(uuid.NewString(), time.Now())))

				stats, err := b.GetStats(ctx)
				require.NoError(t, err)
				require.Equal(t, int64(2), stats.Conversations)
				require.Equal(t, int64(1), stats.ActiveConversations)
			},
		},
		{
			name: "GetConversations",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				db, ok := b.(diag.Backend)
				if !ok {
					t.Skip("backend does not support diagnostics")
				}

				base := time.Now().Add(-time.Hour).Truncate(time.Second)

				var ids []string
				for i := 0; i < 3; i++ {
					s := newState(t, base.Add(time.Duration(i)*time.Minute))
					require.NoError(t, b.SaveConversationState(ctx, s))
					ids = append(ids, s.ConversationID)
				}

				refs, err := db.GetConversations(ctx, "", 2)
				require.NoError(t, err)
				require.Len(t, refs, 2)
				require.Equal(t, ids[2], refs[0].ConversationID)
				require.Equal(t, ids[1], refs[1].ConversationID)
				require.Equal(t, "workflow", refs[0].ActiveDialog)
				require.Equal(t, 2, refs[0].Depth)

				refs, err = db.GetConversations(ctx, refs[1].ConversationID, 2)
				require.NoError(t, err)
				require.Len(t, refs, 1)
				require.Equal(t, ids[0], refs[0].ConversationID)
			},
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setup(t)

			tt.f(t, ctx, b)

			if teardown != nil {
				teardown(t, b)
			}
		})
	}
}

func decodeWorkflowState(di *core.DialogInstance) (*core.WorkflowState, error) {
	ws := &core.WorkflowState{}
	if err := backend.DefaultOptions.Converter.From(di.State, ws); err != nil {
		return nil, err
	}

	return ws, nil
}

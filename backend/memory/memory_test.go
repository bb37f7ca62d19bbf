package memory

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/test"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/stretchr/testify/require"
)

func Test_MemoryBackend(t *testing.T) {
	test.BackendTest(t, func(t *testing.T) backend.Backend {
		return NewMemoryBackend()
	}, nil)
}

func Test_EndToEndMemoryBackend(t *testing.T) {
	test.EndToEndBackendTest(t, func(t *testing.T) backend.Backend {
		return NewMemoryBackend()
	}, nil)
}

func Test_MemoryBackend_DoesNotShareState(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))

	b := NewMemoryBackend(backend.WithClock(mock))

	s := core.NewConversationState("c1", mock.Now())
	s.DialogStack.Push(&core.DialogInstance{ID: "root", State: []byte(`{"a":1}`)})
	require.NoError(t, b.SaveConversationState(ctx, s))
	require.Equal(t, mock.Now(), s.UpdatedAt)

	s.DialogStack[0].State = []byte(`{"a":2}`)

	loaded, err := b.GetConversationState(ctx, "c1")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(loaded.DialogStack[0].State))
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/test"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/stretchr/testify/require"
)

func Test_SqliteBackend(t *testing.T) {
	test.BackendTest(t, func(t *testing.T) backend.Backend {
		return NewInMemoryBackend()
	}, func(t *testing.T, b backend.Backend) {
		require.NoError(t, b.Close())
	})
}

func Test_EndToEndSqliteBackend(t *testing.T) {
	test.EndToEndBackendTest(t, func(t *testing.T) backend.Backend {
		return NewInMemoryBackend()
	}, func(t *testing.T, b backend.Backend) {
		require.NoError(t, b.Close())
	})
}

func Test_SqliteBackend_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "conversations.db")

	b := NewSqliteBackend(path)

	var journalMode string
	require.NoError(t, b.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	require.Equal(t, "wal", journalMode)

	s := core.NewConversationState("c1", time.Now())
	s.DialogStack.Push(&core.DialogInstance{ID: "root", State: []byte(`{"turns":3}`)})
	require.NoError(t, b.SaveConversationState(ctx, s))
	require.NoError(t, b.Close())

	// Reopening applies no migrations and keeps the data
	b = NewSqliteBackend(path)
	defer b.Close()

	loaded, err := b.GetConversationState(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, int64(1), loaded.Version)
	require.JSONEq(t, `{"turns":3}`, string(loaded.DialogStack[0].State))
}

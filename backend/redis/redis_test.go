package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/test"
	"github.com/cschleiden/go-dialogflow/core"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, opts ...RedisBackendOption) (*miniredis.Miniredis, *redisBackend) {
	mr := miniredis.RunT(t)

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})

	b, err := NewRedisBackend(client, opts...)
	require.NoError(t, err)

	return mr, b
}

func Test_RedisBackend(t *testing.T) {
	test.BackendTest(t, func(t *testing.T) backend.Backend {
		_, b := newTestBackend(t, WithKeyPrefix("dialogflow:"))
		return b
	}, func(t *testing.T, b backend.Backend) {
		require.NoError(t, b.Close())
	})
}

func Test_EndToEndRedisBackend(t *testing.T) {
	test.EndToEndBackendTest(t, func(t *testing.T) backend.Backend {
		_, b := newTestBackend(t)
		return b
	}, func(t *testing.T, b backend.Backend) {
		require.NoError(t, b.Close())
	})
}

func Test_RedisBackend_AutoExpiration(t *testing.T) {
	ctx := context.Background()
	mr, b := newTestBackend(t, WithAutoExpiration(time.Hour))
	defer b.Close()

	s := core.NewConversationState("c1", time.Now())
	s.DialogStack.Push(&core.DialogInstance{ID: "root"})
	require.NoError(t, b.SaveConversationState(ctx, s))

	require.Greater(t, mr.TTL(b.keys.conversationKey("c1")), time.Duration(0))

	mr.FastForward(2 * time.Hour)

	_, err := b.GetConversationState(ctx, "c1")
	require.ErrorIs(t, err, backend.ErrConversationNotFound)

	refs, err := b.GetConversations(ctx, "", 10)
	require.NoError(t, err)
	require.Empty(t, refs)
}

func Test_RedisBackend_NoExpirationByDefault(t *testing.T) {
	ctx := context.Background()
	mr, b := newTestBackend(t)
	defer b.Close()

	s := core.NewConversationState("c1", time.Now())
	require.NoError(t, b.SaveConversationState(ctx, s))

	require.Equal(t, time.Duration(0), mr.TTL(b.keys.conversationKey("c1")))
}

func Test_RedisBackend_ActiveSet(t *testing.T) {
	ctx := context.Background()
	mr, b := newTestBackend(t)
	defer b.Close()

	s := core.NewConversationState("c1", time.Now())
	s.DialogStack.Push(&core.DialogInstance{ID: "root"})
	require.NoError(t, b.SaveConversationState(ctx, s))

	ok, err := mr.SIsMember(b.keys.conversationsActive(), "c1")
	require.NoError(t, err)
	require.True(t, ok)

	s.DialogStack.Pop()
	require.NoError(t, b.SaveConversationState(ctx, s))

	require.False(t, mr.Exists(b.keys.conversationsActive()))
}

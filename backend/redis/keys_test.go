package redis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Keys(t *testing.T) {
	k := newKeys("prefix:")

	require.Equal(t, "prefix:conversation:c1", k.conversationKey("c1"))
	require.Equal(t, "prefix:conversations-by-creation", k.conversationsByCreation())
	require.Equal(t, "prefix:conversations-by-update", k.conversationsByUpdate())
	require.Equal(t, "prefix:conversations-active", k.conversationsActive())

	require.Equal(t, "conversation:c1", newKeys("").conversationKey("c1"))
}

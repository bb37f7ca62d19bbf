package redis

import "fmt"

type keys struct {
	prefix string
}

func newKeys(prefix string) *keys {
	return &keys{prefix: prefix}
}

// conversationKey returns the key of the hash holding the state of a single conversation.
func (k *keys) conversationKey(conversationID string) string {
	return fmt.Sprintf("%vconversation:%v", k.prefix, conversationID)
}

// conversationsByCreation returns the key for the ZSET that contains all conversations sorted by creation
// date. The score is the creation time in unix milliseconds. Used for listing conversations in diagnostics.
func (k *keys) conversationsByCreation() string {
	return k.prefix + "conversations-by-creation"
}

// conversationsByUpdate returns the key for the ZSET that contains all conversations scored by their last
// update in unix milliseconds.
func (k *keys) conversationsByUpdate() string {
	return k.prefix + "conversations-by-update"
}

// conversationsActive returns the key for the SET of conversations with a non-empty dialog stack.
func (k *keys) conversationsActive() string {
	return k.prefix + "conversations-active"
}

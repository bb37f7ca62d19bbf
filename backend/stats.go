package backend

type Stats struct {
	// Conversations is the number of persisted conversations
	Conversations int64

	// ActiveConversations are conversations with at least one dialog on their stack
	ActiveConversations int64
}

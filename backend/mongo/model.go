package mongo

import "time"

type conversation struct {
	ConversationID string    `bson:"_id"`
	Version        int64     `bson:"version"`
	DialogStack    []byte    `bson:"dialog_stack"`
	StackDepth     int       `bson:"stack_depth"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

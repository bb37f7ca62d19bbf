package log

const (
	NamespaceKey = "dialogflow"

	ConversationIDKey = NamespaceKey + ".conversation.id"
	ChannelIDKey      = NamespaceKey + ".channel.id"
	DialogIDKey       = NamespaceKey + ".dialog.id"
	ActivityTypeKey   = NamespaceKey + ".activity.type"

	WorkflowIDKey = NamespaceKey + ".workflow.id"
	ReasonKey     = NamespaceKey + ".workflow.reason"
	StatusKey     = NamespaceKey + ".workflow.status"

	TaskKindKey     = NamespaceKey + ".task.kind"
	TaskHashedIDKey = NamespaceKey + ".task.hashed_id"

	HistoryLengthKey = NamespaceKey + ".history.length"
	CursorKey        = NamespaceKey + ".history.cursor"
	IsReplayingKey   = NamespaceKey + ".is_replaying"

	VersionKey = NamespaceKey + ".state.version"

	AttemptKey  = NamespaceKey + ".attempt"
	DurationKey = NamespaceKey + ".duration_ms"
)

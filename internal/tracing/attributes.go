package tracing

const (
	ConversationID = "dialogflow.conversation_id"
	ActivityType   = "dialogflow.activity_type"
	DialogID       = "dialogflow.dialog_id"
	TurnStatus     = "dialogflow.turn_status"

	WorkflowReason    = "workflow.reason"
	WorkflowHistory   = "workflow.history_length"
	WorkflowCompleted = "workflow.completed"

	TaskKind     = "task.kind"
	TaskHashedID = "task.hashed_id"
	TaskSuccess  = "task.success"
)

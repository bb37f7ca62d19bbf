package metrickeys

const (
	Prefix = "dialogflow."

	// Turns
	TurnProcessed = Prefix + "turn.processed"
	TurnDuration  = Prefix + "turn.duration"
	TurnConflict  = Prefix + "turn.conflict"

	// Workflows
	WorkflowStarted   = Prefix + "workflow.started"
	WorkflowCompleted = Prefix + "workflow.completed"
	WorkflowSuspended = Prefix + "workflow.suspended"
	WorkflowRestarted = Prefix + "workflow.restarted"
	WorkflowFaulted   = Prefix + "workflow.faulted"

	// Effects
	EffectReplayed = Prefix + "effect.replayed"
	EffectExecuted = Prefix + "effect.executed"
	EffectFailed   = Prefix + "effect.failed"
	EffectDuration = Prefix + "effect.duration"

	// Conversation state cache
	StateCacheSize     = Prefix + "state.cache.size"
	StateCacheEviction = Prefix + "state.cache.eviction"
)

// Tag names
const (
	// Backend being used
	Backend = "backend"

	// Reason for evicting an entry from the conversation state cache
	EvictionReason = "reason"

	DialogID = "dialog"
	Kind     = "kind"
	Status   = "status"
)

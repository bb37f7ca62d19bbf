package core

import (
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/backend/payload"
)

// WorkflowState is the persisted state of a single workflow instance. It is owned by the dialog
// instance running the workflow and mutated only by the executor while a turn is processed.
type WorkflowState struct {
	// Options are set once when the workflow is started and replaced on restart
	Options payload.Payload `json:"options,omitempty"`

	// History holds the outcome of every effect executed so far, in execution order
	History []history.Entry `json:"history"`

	// ResumeState is set while the workflow is suspended
	ResumeState *history.ResumeState `json:"resumeState,omitempty"`
}

func NewWorkflowState(options payload.Payload) *WorkflowState {
	return &WorkflowState{
		Options: options,
		History: []history.Entry{},
	}
}

func (s *WorkflowState) Suspended() bool {
	return s.ResumeState != nil
}

package diag

import (
	"encoding/json"

	"github.com/cschleiden/go-dialogflow/core"
)

// NewConversationInfo describes the given conversation. Dialog states that hold a workflow history
// are decoded, all other states are returned as is.
func NewConversationInfo(state *core.ConversationState) *ConversationInfo {
	info := &ConversationInfo{
		ConversationRef: NewConversationRef(state),
		Dialogs:         make([]*Dialog, 0, len(state.DialogStack)),
	}

	for _, di := range state.DialogStack {
		d := &Dialog{ID: di.ID}

		if wf, ok := decodeWorkflow(di.State); ok {
			d.Workflow = wf
		} else {
			d.State = di.State
		}

		info.Dialogs = append(info.Dialogs, d)
	}

	return info
}

func decodeWorkflow(state []byte) (*Workflow, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(state, &probe); err != nil {
		return nil, false
	}

	if _, ok := probe["history"]; !ok {
		return nil, false
	}

	var ws core.WorkflowState
	if err := json.Unmarshal(state, &ws); err != nil {
		return nil, false
	}

	return &Workflow{
		Options:     ws.Options,
		History:     ws.History,
		ResumeState: ws.ResumeState,
	}, true
}

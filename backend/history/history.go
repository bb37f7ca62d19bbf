package history

import (
	"fmt"

	"github.com/cschleiden/go-dialogflow/backend/payload"
)

// Kinds of recorded effects. The values are persisted and must never change.
const (
	KindAsyncCall      = "AsyncCall"
	KindUser           = "User"
	KindPrompt         = "Prompt"
	KindWait           = "Wait"
	KindRestart        = "Restart"
	KindBoundFunc      = "boundFunc"
	KindCurrentUtcTime = "currentUtcTime"
	KindNewGuid        = "newGuid"
)

// Entry is the recorded outcome of one completed effect.
type Entry struct {
	// Kind identifies the type of effect that produced this entry
	Kind string `json:"kind"`

	// HashedID is the hash of the effect's persistent identifier, see HashID
	HashedID string `json:"hashedId"`

	Result Result `json:"result"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%s(%s): %s", e.Kind, e.HashedID, e.Result)
}

// Result is the persisted outcome of an effect. Either Success is set and Value optionally
// holds the serialized value, or Error holds a diagnostic message.
type Result struct {
	Success bool            `json:"success"`
	Value   payload.Payload `json:"value,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func Succeeded(value payload.Payload) Result {
	return Result{Success: true, Value: value}
}

// Failed records err as the outcome. The message is never empty so that failed results always
// carry an error field.
func Failed(err error) Result {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}

	return Result{Success: false, Error: msg}
}

func (r Result) String() string {
	if r.Success {
		return "success"
	}

	return "failed: " + r.Error
}

// ResumeState marks an outstanding suspension. It identifies the effect that suspended the workflow.
type ResumeState struct {
	Kind     string `json:"kind"`
	HashedID string `json:"hashedId"`
}

package workflowstate

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/internal/sync"
	"github.com/cschleiden/go-dialogflow/internal/task"
	"github.com/cschleiden/go-dialogflow/internal/workflowerrors"
	"github.com/cschleiden/go-dialogflow/log"
)

// WfState is the per-turn state shared between the executor and the workflow code running in the
// coroutine. Only one of them runs at any time.
type WfState struct {
	instance *core.WorkflowState
	next     int

	co      sync.Coroutine
	pending task.Effect
	result  history.Result
	fault   error

	channelID  string
	workflowID string

	converter converter.Converter
	clock     clock.Clock
	logger    *slog.Logger
}

func NewWorkflowState(
	instance *core.WorkflowState,
	channelID, workflowID string,
	logger *slog.Logger,
	c converter.Converter,
	clock clock.Clock,
) *WfState {
	s := &WfState{
		instance:   instance,
		channelID:  channelID,
		workflowID: workflowID,
		converter:  c,
		clock:      clock,
	}

	s.logger = NewReplayLogger(s, logger.With(
		slog.String(log.WorkflowIDKey, workflowID),
		slog.String(log.ChannelIDKey, channelID),
	))

	return s
}

func (wf *WfState) SetCoroutine(co sync.Coroutine) {
	wf.co = co
}

func (wf *WfState) Instance() *core.WorkflowState {
	return wf.instance
}

// Next returns the position of the next history entry to be consumed.
func (wf *WfState) Next() int {
	return wf.next
}

// Replaying returns true while recorded history remains to be consumed or a suspension has not yet
// been resumed.
func (wf *WfState) Replaying() bool {
	return wf.next < len(wf.instance.History) || wf.instance.ResumeState != nil
}

// Yield hands the given effect to the executor and blocks until its outcome is available. Must be
// called from the workflow coroutine.
func (wf *WfState) Yield(e task.Effect) history.Result {
	wf.pending = e
	wf.co.Yield()

	return wf.result
}

// Pending returns the effect the workflow is currently blocked on.
func (wf *WfState) Pending() task.Effect {
	return wf.pending
}

// Replay feeds back the next recorded entry for the pending effect.
func (wf *WfState) Replay() history.Result {
	r := wf.instance.History[wf.next].Result
	wf.next++
	wf.setResult(r)

	return r
}

// Append records the outcome of the pending effect.
func (wf *WfState) Append(e history.Entry) {
	wf.instance.History = append(wf.instance.History, e)
	wf.next++
	wf.setResult(e.Result)
}

func (wf *WfState) setResult(r history.Result) {
	wf.pending = nil
	wf.result = r
}

// Record returns the recorded outcome for an effect that is executed inline by the workflow
// coroutine. On first execution produce is invoked and its result appended. A mismatch between
// the recorded entry and the given kind and id aborts the workflow, as does a new entry while a
// suspension is still waiting to be resumed.
func (wf *WfState) Record(kind, hashedID string, produce func() history.Result) history.Result {
	if wf.next == len(wf.instance.History) {
		if rs := wf.instance.ResumeState; rs != nil {
			wf.Abort(&workflowerrors.DivergenceError{
				Index:            wf.next,
				ExpectedKind:     rs.Kind,
				ExpectedHashedID: rs.HashedID,
				ActualKind:       kind,
				ActualHashedID:   hashedID,
				Reason:           "inline effect before resumed suspension",
			})
		}

		wf.instance.History = append(wf.instance.History, history.Entry{
			Kind:     kind,
			HashedID: hashedID,
			Result:   produce(),
		})
	}

	entry := wf.instance.History[wf.next]
	if entry.Kind != kind || entry.HashedID != hashedID {
		wf.Abort(&workflowerrors.DivergenceError{
			Index:            wf.next,
			ExpectedKind:     entry.Kind,
			ExpectedHashedID: entry.HashedID,
			ActualKind:       kind,
			ActualHashedID:   hashedID,
			Reason:           "recorded entry does not match",
		})
	}

	wf.next++

	return entry.Result
}

// Diverged aborts the workflow because the entry just consumed is malformed.
func (wf *WfState) Diverged(format string, args ...any) {
	wf.Abort(workflowerrors.NewDivergenceError(wf.next-1, fmt.Sprintf(format, args...)))
}

// Abort stops the workflow coroutine with a fault. Must be called from the workflow coroutine.
func (wf *WfState) Abort(err error) {
	wf.fault = err
	runtime.Goexit()
}

// Fault returns the fault the workflow was aborted with, if any.
func (wf *WfState) Fault() error {
	return wf.fault
}

func (wf *WfState) ChannelID() string {
	return wf.channelID
}

func (wf *WfState) WorkflowID() string {
	return wf.workflowID
}

func (wf *WfState) Converter() converter.Converter {
	return wf.converter
}

func (wf *WfState) Clock() clock.Clock {
	return wf.clock
}

func (wf *WfState) Logger() *slog.Logger {
	return wf.logger
}

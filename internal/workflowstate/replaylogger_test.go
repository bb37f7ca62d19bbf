package workflowstate

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/stretchr/testify/require"
)

func newState(buf *bytes.Buffer, instance *core.WorkflowState) *WfState {
	logger := slog.New(slog.NewTextHandler(buf, nil))
	return NewWorkflowState(instance, "test", "wf", logger, converter.DefaultConverter, clock.NewMock())
}

func Test_ReplayLogger_With(t *testing.T) {
	wfState := newState(&bytes.Buffer{}, core.NewWorkflowState(nil))

	with := wfState.Logger().With(slog.String("foo", "bar"))
	require.IsType(t, &replayHandler{}, with.Handler())
}

func Test_ReplayLogger_WithGroup(t *testing.T) {
	wfState := newState(&bytes.Buffer{}, core.NewWorkflowState(nil))

	with := wfState.Logger().WithGroup("group_name")
	require.IsType(t, &replayHandler{}, with.Handler())
}

func Test_ReplayLogger_DropsWhileReplaying(t *testing.T) {
	instance := core.NewWorkflowState(nil)
	instance.History = append(instance.History, history.Entry{Kind: history.KindNewGuid, Result: history.Succeeded([]byte(`"x"`))})

	buf := &bytes.Buffer{}
	wfState := newState(buf, instance)

	wfState.Logger().Info("while replaying")
	require.Empty(t, buf.String())

	wfState.next = 1
	wfState.Logger().With(slog.Int("n", 1)).Info("live")
	require.Contains(t, buf.String(), "live")
	require.Contains(t, buf.String(), "n=1")
	require.Contains(t, buf.String(), "dialogflow.workflow.id=wf")
	require.NotContains(t, buf.String(), "while replaying")
}

func Test_ReplayLogger_DropsWhileSuspended(t *testing.T) {
	instance := core.NewWorkflowState(nil)
	instance.ResumeState = &history.ResumeState{Kind: history.KindWait}

	buf := &bytes.Buffer{}
	wfState := newState(buf, instance)

	wfState.Logger().Info("before resume")
	require.Empty(t, buf.String())

	instance.ResumeState = nil
	wfState.Logger().Info("after resume")
	require.Contains(t, buf.String(), "after resume")
}

package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/backend/metrics"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/internal/contextvalue"
	"github.com/cschleiden/go-dialogflow/internal/metrickeys"
	im "github.com/cschleiden/go-dialogflow/internal/metrics"
	"github.com/cschleiden/go-dialogflow/internal/sync"
	"github.com/cschleiden/go-dialogflow/internal/task"
	"github.com/cschleiden/go-dialogflow/internal/tracing"
	"github.com/cschleiden/go-dialogflow/internal/workflowerrors"
	"github.com/cschleiden/go-dialogflow/internal/workflowstate"
	"github.com/cschleiden/go-dialogflow/log"
	wf "github.com/cschleiden/go-dialogflow/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrWorkflowFailed is returned when the workflow function returned an error. The error returned by
// the workflow is wrapped.
var ErrWorkflowFailed = errors.New("workflow failed")

// WorkflowFunc is the untyped form of a workflow function run by the executor.
type WorkflowFunc func(ctx wf.Context) (any, error)

// Executor runs a workflow for a single turn. It replays the recorded history, resumes an
// outstanding suspension, executes new effects, and either suspends or completes the workflow.
type Executor struct {
	dc    *dialog.Context
	state *core.WorkflowState
	opts  Options
}

func New(dc *dialog.Context, state *core.WorkflowState, opts ...Option) *Executor {
	return &Executor{
		dc:    dc,
		state: state,
		opts:  applyOptions(opts...),
	}
}

// Run drives the workflow function for one turn. Divergence and protocol faults are returned as
// *workflowerrors.DivergenceError, in which case the state must not be persisted.
func (e *Executor) Run(ctx context.Context, fn WorkflowFunc, reason dialog.Reason, resumeResult any) (dialog.TurnResult, error) {
	tc := e.dc.TurnContext()
	activity := tc.Activity()

	workflowID := ""
	if active := e.dc.ActiveDialog(); active != nil {
		workflowID = active.ID
	}

	logger := e.opts.Logger.With(
		slog.String(log.WorkflowIDKey, workflowID),
		slog.String(log.ReasonKey, reason.String()),
	)

	mc := e.opts.Metrics.WithTags(metrics.Tags{metrickeys.DialogID: workflowID})

	ctx, span := e.opts.Tracer.Start(ctx, "Workflow: "+workflowID, trace.WithAttributes(
		attribute.String(tracing.DialogID, workflowID),
		attribute.String(tracing.WorkflowReason, reason.String()),
		attribute.Int(tracing.WorkflowHistory, len(e.state.History)),
	))
	defer span.End()

	if reason == dialog.ReasonBeginCalled {
		mc.Counter(metrickeys.WorkflowStarted, nil, 1)
	}

	s := workflowstate.NewWorkflowState(e.state, activity.ChannelID, workflowID, e.opts.Logger, e.opts.Converter, e.opts.Clock)

	var result any
	co := sync.NewCoroutine(func(co sync.Coroutine) error {
		r, err := fn(wf.NewContext(s))
		result = r
		return err
	})
	s.SetCoroutine(co)

	// The coroutine is either finished or blocked on the suspending effect, make sure it exits
	defer co.Exit()

	r, err := e.run(ctx, s, co, reason, resumeResult, logger, mc)
	if err != nil {
		var de *workflowerrors.DivergenceError
		if errors.As(err, &de) {
			mc.Counter(metrickeys.WorkflowFaulted, nil, 1)
			logger.Error("Workflow diverged", "error", err)
		}

		return dialog.TurnResult{}, tracing.WithSpanError(span, err)
	}

	if !co.Finished() {
		return r, nil
	}

	span.SetAttributes(attribute.Bool(tracing.WorkflowCompleted, true))

	if err := co.Error(); err != nil {
		var pe *workflowerrors.PanicError
		if errors.As(err, &pe) {
			logger.Error("Workflow panicked", "error", err, "stack", pe.Stack())
			return dialog.TurnResult{}, tracing.WithSpanError(span, err)
		}

		logger.Debug("Workflow failed", "error", err)
		return dialog.TurnResult{}, tracing.WithSpanError(span, fmt.Errorf("%w: %w", ErrWorkflowFailed, err))
	}

	mc.Counter(metrickeys.WorkflowCompleted, nil, 1)
	logger.Debug("Workflow completed", slog.Int(log.HistoryLengthKey, len(e.state.History)))

	return e.dc.EndDialog(ctx, result)
}

func (e *Executor) run(
	ctx context.Context,
	s *workflowstate.WfState,
	co sync.Coroutine,
	reason dialog.Reason,
	resumeResult any,
	logger *slog.Logger,
	mc metrics.Client,
) (dialog.TurnResult, error) {
	tc := e.dc.TurnContext()

	// Advance to the first effect
	if err := e.step(s, co); err != nil {
		return dialog.TurnResult{}, err
	}

	// Replay recorded history
	for !co.Finished() && s.Next() < len(e.state.History) {
		eff := s.Pending()
		entry := e.state.History[s.Next()]

		if hashed := history.HashID(eff.ID()); entry.Kind != eff.Kind() || entry.HashedID != hashed {
			return dialog.TurnResult{}, &workflowerrors.DivergenceError{
				Index:            s.Next(),
				ExpectedKind:     entry.Kind,
				ExpectedHashedID: entry.HashedID,
				ActualKind:       eff.Kind(),
				ActualHashedID:   hashed,
				Reason:           "recorded entry does not match",
			}
		}

		s.Replay()
		mc.Counter(metrickeys.EffectReplayed, metrics.Tags{metrickeys.Kind: eff.Kind()}, 1)

		if err := e.step(s, co); err != nil {
			return dialog.TurnResult{}, err
		}
	}

	// Resume from the last suspension, unless the workflow is run for the first time
	if reason != dialog.ReasonBeginCalled {
		if err := e.resume(ctx, s, co, tc, resumeResult, logger); err != nil {
			return dialog.TurnResult{}, err
		}
	}

	// Execute new effects until the workflow completes or suspends
	for !co.Finished() {
		a, ok := s.Pending().(task.Async)
		if !ok {
			break
		}

		e.invoke(ctx, s, a, tc, logger, mc)

		if err := e.step(s, co); err != nil {
			return dialog.TurnResult{}, err
		}
	}

	if s.Next() != len(e.state.History) {
		return dialog.TurnResult{}, workflowerrors.NewDivergenceError(s.Next(),
			fmt.Sprintf("workflow consumed %d of %d recorded entries", s.Next(), len(e.state.History)))
	}

	if co.Finished() {
		return dialog.TurnResult{}, nil
	}

	// Record the suspension point
	eff, ok := s.Pending().(task.Suspending)
	if !ok {
		return dialog.TurnResult{}, workflowerrors.NewDivergenceError(s.Next(),
			fmt.Sprintf("workflow is blocked on unsupported effect %T", s.Pending()))
	}

	e.state.ResumeState = &history.ResumeState{
		Kind:     eff.Kind(),
		HashedID: history.HashID(eff.ID()),
	}

	mc.Counter(metrickeys.WorkflowSuspended, metrics.Tags{metrickeys.Kind: eff.Kind()}, 1)
	if eff.Kind() == history.KindRestart {
		mc.Counter(metrickeys.WorkflowRestarted, nil, 1)
	}

	logger.Debug("Workflow suspended",
		slog.String(log.TaskKindKey, eff.Kind()),
		slog.Int(log.HistoryLengthKey, len(e.state.History)),
	)

	return eff.OnSuspend(ctx, e.dc)
}

// step lets the workflow run until it yields the next effect or finishes.
func (e *Executor) step(s *workflowstate.WfState, co sync.Coroutine) error {
	if err := co.Execute(); err != nil {
		return err
	}

	if err := s.Fault(); err != nil {
		return err
	}

	if !co.Finished() && s.Pending() == nil {
		return workflowerrors.NewDivergenceError(s.Next(), "workflow yielded without an effect")
	}

	return nil
}

func (e *Executor) resume(
	ctx context.Context,
	s *workflowstate.WfState,
	co sync.Coroutine,
	tc dialog.TurnContext,
	resumeResult any,
	logger *slog.Logger,
) error {
	rs := e.state.ResumeState
	if rs == nil {
		return workflowerrors.NewDivergenceError(s.Next(), "workflow was resumed but is not suspended")
	}

	if co.Finished() {
		return workflowerrors.NewDivergenceError(s.Next(), "workflow completed before reaching its suspension point")
	}

	eff, ok := s.Pending().(task.Suspending)
	if !ok {
		return &workflowerrors.DivergenceError{
			Index:            s.Next(),
			ExpectedKind:     rs.Kind,
			ExpectedHashedID: rs.HashedID,
			ActualKind:       s.Pending().Kind(),
			ActualHashedID:   history.HashID(s.Pending().ID()),
			Reason:           "resumed effect does not suspend",
		}
	}

	if hashed := history.HashID(eff.ID()); eff.Kind() != rs.Kind || hashed != rs.HashedID {
		return &workflowerrors.DivergenceError{
			Index:            s.Next(),
			ExpectedKind:     rs.Kind,
			ExpectedHashedID: rs.HashedID,
			ActualKind:       eff.Kind(),
			ActualHashedID:   hashed,
			Reason:           "resumed effect does not match suspension",
		}
	}

	e.state.ResumeState = nil

	r, err := eff.OnResume(contextvalue.WithClock(ctx, e.opts.Clock), tc, e.opts.Converter, resumeResult)
	if err != nil {
		return workflowerrors.NewDivergenceError(s.Next(), fmt.Sprintf("resuming %s: %v", eff.Kind(), err))
	}

	logger.Debug("Workflow resumed", slog.String(log.TaskKindKey, eff.Kind()), slog.Bool("success", r.Success))

	s.Append(history.Entry{
		Kind:     eff.Kind(),
		HashedID: history.HashID(eff.ID()),
		Result:   r,
	})

	return e.step(s, co)
}

// invoke executes an async effect live and records its outcome.
func (e *Executor) invoke(
	ctx context.Context,
	s *workflowstate.WfState,
	a task.Async,
	tc dialog.TurnContext,
	logger *slog.Logger,
	mc metrics.Client,
) {
	hashed := history.HashID(a.ID())

	ctx, span := e.opts.Tracer.Start(ctx, "Effect: "+a.Kind(), trace.WithAttributes(
		attribute.String(tracing.TaskKind, a.Kind()),
		attribute.String(tracing.TaskHashedID, hashed),
	))
	defer span.End()

	timer := im.NewTimer(mc, e.opts.Clock, metrickeys.EffectDuration, metrics.Tags{metrickeys.Kind: a.Kind()})
	r := a.Invoke(contextvalue.WithClock(ctx, e.opts.Clock), tc, e.opts.Converter)
	duration := timer.Stop()

	span.SetAttributes(attribute.Bool(tracing.TaskSuccess, r.Success))
	mc.Counter(metrickeys.EffectExecuted, metrics.Tags{metrickeys.Kind: a.Kind()}, 1)

	if !r.Success {
		mc.Counter(metrickeys.EffectFailed, metrics.Tags{metrickeys.Kind: a.Kind()}, 1)
		logger.Debug("Effect failed",
			slog.String(log.TaskKindKey, a.Kind()),
			slog.String(log.TaskHashedIDKey, hashed),
			slog.Int64(log.DurationKey, duration.Milliseconds()),
			"error", r.Error,
		)
	}

	s.Append(history.Entry{
		Kind:     a.Kind(),
		HashedID: hashed,
		Result:   r,
	})
}

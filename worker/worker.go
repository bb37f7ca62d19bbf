package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/metrics"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/internal/metrickeys"
	im "github.com/cschleiden/go-dialogflow/internal/metrics"
	"github.com/cschleiden/go-dialogflow/internal/tracing"
	"github.com/cschleiden/go-dialogflow/log"
	"github.com/cschleiden/go-dialogflow/worker/cache"
	wf "github.com/cschleiden/go-dialogflow/workflow"
	"github.com/cschleiden/go-dialogflow/workflow/executor"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrMissingConversationID = errors.New("activity has no conversation id")
	ErrNoRootDialog          = errors.New("no root dialog configured")
)

// Worker processes inbound activities turn by turn. It loads the dialog stack of the conversation,
// runs the active dialog, and saves the stack with optimistic concurrency.
type Worker struct {
	backend backend.Backend
	dialogs *dialog.Set
	options *Options

	cache cache.StateCache

	logger *slog.Logger
	tracer trace.Tracer
	mc     metrics.Client

	wg sync.WaitGroup
}

// New creates a worker persisting conversations in the given backend.
func New(b backend.Backend, options *Options) *Worker {
	if options == nil {
		o := DefaultOptions
		options = &o
	}

	if options.CompletionHandler == nil {
		options.CompletionHandler = SendCompletionResult
	}

	bo := b.Options()

	dialogs, _ := dialog.NewSet()
	dialogs.SetConverter(bo.Converter)

	w := &Worker{
		backend: b,
		dialogs: dialogs,
		options: options,
		logger:  bo.Logger,
		tracer:  b.Tracer(),
		mc:      b.Metrics(),
	}

	if !options.DisableStateCache {
		if options.StateCache != nil {
			w.cache = options.StateCache
		} else {
			size, ttl := options.StateCacheSize, options.StateCacheTTL
			if size <= 0 {
				size = DefaultOptions.StateCacheSize
			}
			if ttl <= 0 {
				ttl = DefaultOptions.StateCacheTTL
			}

			w.cache = cache.NewStateLRUCache(w.mc, size, ttl)
		}
	}

	return w
}

// Dialogs returns the dialogs the worker can run.
func (w *Worker) Dialogs() *dialog.Set {
	return w.dialogs
}

func (w *Worker) RegisterDialog(d dialog.Dialog) error {
	return w.dialogs.Add(d)
}

// RegisterWorkflow registers a workflow dialog with the given id. The workflow shares the logger, tracer,
// metrics, and clock of the worker's backend.
func RegisterWorkflow[O, R any](w *Worker, id string, fn wf.Workflow[O, R]) error {
	return w.dialogs.Add(NewWorkflowDialog(id, fn, w.executorOptions()...))
}

func (w *Worker) executorOptions() []executor.Option {
	bo := w.backend.Options()

	return []executor.Option{
		executor.WithLogger(bo.Logger),
		executor.WithTracer(w.tracer),
		executor.WithMetrics(w.mc),
		executor.WithClock(bo.Clock),
	}
}

// Start runs background maintenance of the worker until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	if w.cache == nil {
		return nil
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.cache.StartEviction(ctx)
	}()

	return nil
}

// WaitForCompletion waits for the background maintenance started by Start to stop.
func (w *Worker) WaitForCompletion() error {
	w.wg.Wait()

	return nil
}

// ProcessActivity runs a single turn for the conversation of the given activity. Outbound activities are
// delivered through the adapter. Faults abort the turn, in which case the conversation state is not saved.
// backend.ErrConflict is returned when another turn of the same conversation was saved concurrently.
func (w *Worker) ProcessActivity(ctx context.Context, activity *dialog.Activity, adapter dialog.Adapter) (dialog.TurnResult, error) {
	if activity.ConversationID == "" {
		return dialog.TurnResult{}, ErrMissingConversationID
	}

	conversationID := activity.ConversationID

	logger := w.logger.With(
		slog.String(log.ConversationIDKey, conversationID),
		slog.String(log.ChannelIDKey, activity.ChannelID),
		slog.String(log.ActivityTypeKey, string(activity.Type)),
	)

	ctx, span := w.tracer.Start(ctx, "ProcessActivity", trace.WithAttributes(
		attribute.String(tracing.ConversationID, conversationID),
		attribute.String(tracing.ActivityType, string(activity.Type)),
	))
	defer span.End()

	timer := im.NewTimer(w.mc, w.backend.Options().Clock, metrickeys.TurnDuration, nil)
	defer timer.Stop()

	state, err := w.load(ctx, conversationID)
	if err != nil {
		return dialog.TurnResult{}, tracing.WithSpanError(span, err)
	}

	tc := dialog.NewTurnContext(adapter, activity)
	dc := w.dialogs.CreateContext(tc, &state.DialogStack)

	r, err := w.runTurn(ctx, dc, activity)
	if err != nil {
		w.evict(ctx, conversationID, logger)
		logger.Error("Turn failed", "error", err)

		return dialog.TurnResult{}, tracing.WithSpanError(span, err)
	}

	span.SetAttributes(attribute.String(tracing.TurnStatus, r.Status.String()))

	if r.Status == dialog.StatusEmpty {
		// Nothing was started, nothing to persist
		return r, nil
	}

	if r.Status == dialog.StatusComplete {
		if err := w.options.CompletionHandler(ctx, tc, r.Result); err != nil {
			w.evict(ctx, conversationID, logger)
			return dialog.TurnResult{}, tracing.WithSpanError(span, fmt.Errorf("handling completion: %w", err))
		}
	}

	if err := state.DialogStack.Flush(w.dialogs.Converter()); err != nil {
		w.evict(ctx, conversationID, logger)
		return dialog.TurnResult{}, tracing.WithSpanError(span, err)
	}

	if err := w.backend.SaveConversationState(ctx, state); err != nil {
		w.evict(ctx, conversationID, logger)

		if errors.Is(err, backend.ErrConflict) {
			w.mc.Counter(metrickeys.TurnConflict, nil, 1)
			logger.Warn("Conversation was saved concurrently", slog.Int64(log.VersionKey, state.Version))
		}

		return dialog.TurnResult{}, tracing.WithSpanError(span, fmt.Errorf("saving conversation state: %w", err))
	}

	if w.cache != nil {
		if err := w.cache.Store(ctx, state); err != nil {
			logger.Error("Could not cache conversation state", "error", err)
		}
	}

	w.mc.Counter(metrickeys.TurnProcessed, metrics.Tags{metrickeys.Status: r.Status.String()}, 1)
	logger.Debug("Processed turn", slog.String(log.StatusKey, r.Status.String()), slog.Int64(log.VersionKey, state.Version))

	return r, nil
}

func (w *Worker) runTurn(ctx context.Context, dc *dialog.Context, activity *dialog.Activity) (dialog.TurnResult, error) {
	r, err := dc.ContinueDialog(ctx)
	if err != nil || r.Status != dialog.StatusEmpty {
		return r, err
	}

	// Only messages start a conversation
	if activity.Type != dialog.ActivityTypeMessage {
		return r, nil
	}

	if w.options.RootDialog == "" {
		return dialog.TurnResult{}, ErrNoRootDialog
	}

	return dc.BeginDialog(ctx, w.options.RootDialog, w.options.RootDialogOptions)
}

func (w *Worker) load(ctx context.Context, conversationID string) (*core.ConversationState, error) {
	if w.cache != nil {
		state, ok, err := w.cache.Get(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("reading state cache: %w", err)
		}

		if ok {
			return state, nil
		}
	}

	state, err := w.backend.GetConversationState(ctx, conversationID)
	if err != nil {
		if errors.Is(err, backend.ErrConversationNotFound) {
			return core.NewConversationState(conversationID, w.backend.Options().Clock.Now()), nil
		}

		return nil, fmt.Errorf("loading conversation state: %w", err)
	}

	return state, nil
}

func (w *Worker) evict(ctx context.Context, conversationID string, logger *slog.Logger) {
	if w.cache == nil {
		return
	}

	if err := w.cache.Evict(ctx, conversationID); err != nil {
		logger.Error("Could not evict conversation state", "error", err)
	}
}

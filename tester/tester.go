// Package tester runs a conversational workflow against an in-memory backend with a mock clock. Every
// turn goes through the same worker code path a production deployment uses.
package tester

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/memory"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/worker"
	wf "github.com/cschleiden/go-dialogflow/workflow"
)

const (
	ConversationID = "tester"
	ChannelID      = "test"
	UserID         = "user"
	BotID          = "bot"

	rootDialogID = "root"
)

type ConversationTester[O, R any] struct {
	backend backend.Backend
	worker  *worker.Worker
	clock   *clock.Mock

	adapter *recordingAdapter
	inbound int

	result dialog.TurnResult
}

// recordingAdapter collects the activities sent by the bot.
type recordingAdapter struct {
	mu      sync.Mutex
	replies []*dialog.Activity
	turn    []*dialog.Activity
}

func (ra *recordingAdapter) SendActivity(_ context.Context, a *dialog.Activity) (*dialog.ResourceResponse, error) {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	ra.replies = append(ra.replies, a)
	ra.turn = append(ra.turn, a)

	return &dialog.ResourceResponse{ID: strconv.Itoa(len(ra.replies))}, nil
}

func (ra *recordingAdapter) startTurn() {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	ra.turn = nil
}

func (ra *recordingAdapter) sentInTurn() []*dialog.Activity {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	return append([]*dialog.Activity(nil), ra.turn...)
}

func NewConversationTester[O, R any](fn wf.Workflow[O, R], opts ...ConversationTesterOption) *ConversationTester[O, R] {
	o := &options{
		Logger: slog.Default(),
		Start:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	for _, opt := range opts {
		opt(o)
	}

	c := clock.NewMock()
	c.Set(o.Start)

	bopts := []backend.BackendOption{
		backend.WithLogger(o.Logger),
		backend.WithClock(c),
	}
	if o.Converter != nil {
		bopts = append(bopts, backend.WithConverter(o.Converter))
	}

	b := memory.NewMemoryBackend(bopts...)

	w := worker.New(b, &worker.Options{
		RootDialog:        rootDialogID,
		RootDialogOptions: o.RootOptions,
		DisableStateCache: true,
	})

	for _, d := range o.Dialogs {
		if err := w.RegisterDialog(d); err != nil {
			panic(fmt.Errorf("registering dialog: %w", err))
		}
	}

	if err := worker.RegisterWorkflow(w, rootDialogID, fn); err != nil {
		panic(fmt.Errorf("registering workflow: %w", err))
	}

	return &ConversationTester[O, R]{
		backend: b,
		worker:  w,
		clock:   c,
		adapter: &recordingAdapter{},
	}
}

// Send delivers a message from the user and returns the activities sent during the turn.
func (ct *ConversationTester[O, R]) Send(text string) ([]*dialog.Activity, error) {
	return ct.SendActivity(&dialog.Activity{
		Type: dialog.ActivityTypeMessage,
		Text: text,
	})
}

// SendActivity delivers the given activity and returns the activities sent during the turn.
func (ct *ConversationTester[O, R]) SendActivity(a *dialog.Activity) ([]*dialog.Activity, error) {
	ct.inbound++

	a.ID = strconv.Itoa(ct.inbound)
	a.Timestamp = ct.clock.Now()
	a.ChannelID = ChannelID
	a.ConversationID = ConversationID
	a.From = dialog.ChannelAccount{ID: UserID}
	a.Recipient = dialog.ChannelAccount{ID: BotID}

	ct.adapter.startTurn()

	r, err := ct.worker.ProcessActivity(context.Background(), a, ct.adapter)
	if err != nil {
		return nil, err
	}

	ct.result = r

	return ct.adapter.sentInTurn(), nil
}

// SendTexts sends the given messages one after the other and returns the text of all replies.
func (ct *ConversationTester[O, R]) SendTexts(texts ...string) ([]string, error) {
	var replies []string

	for _, text := range texts {
		sent, err := ct.Send(text)
		if err != nil {
			return replies, err
		}

		for _, a := range sent {
			replies = append(replies, a.Text)
		}
	}

	return replies, nil
}

// Replies returns all activities sent by the bot so far.
func (ct *ConversationTester[O, R]) Replies() []*dialog.Activity {
	ct.adapter.mu.Lock()
	defer ct.adapter.mu.Unlock()

	return append([]*dialog.Activity(nil), ct.adapter.replies...)
}

// Completed returns true if the last turn completed the workflow.
func (ct *ConversationTester[O, R]) Completed() bool {
	return ct.result.Status == dialog.StatusComplete
}

// Result returns the result of the workflow once it completed.
func (ct *ConversationTester[O, R]) Result() (R, error) {
	if ct.result.Status != dialog.StatusComplete {
		return *new(R), fmt.Errorf("workflow has not completed, last turn was %v", ct.result.Status)
	}

	r, ok := ct.result.Result.(R)
	if !ok {
		return *new(R), fmt.Errorf("unexpected result type %T", ct.result.Result)
	}

	return r, nil
}

// WorkflowState returns the persisted state of the running workflow.
func (ct *ConversationTester[O, R]) WorkflowState() (*core.WorkflowState, error) {
	s, err := ct.backend.GetConversationState(context.Background(), ConversationID)
	if err != nil {
		return nil, err
	}

	if len(s.DialogStack) == 0 || s.DialogStack[0].ID != rootDialogID {
		return nil, errors.New("workflow is not running")
	}

	return dialog.InstanceState[core.WorkflowState](ct.backend.Options().Converter, s.DialogStack[0])
}

// Clock returns the mock clock used for timestamps, Context.Now and retry delays. A turn waiting on a
// retry delay only continues once the clock is advanced from another goroutine.
func (ct *ConversationTester[O, R]) Clock() *clock.Mock {
	return ct.clock
}

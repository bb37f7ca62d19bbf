package test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/dialog/prompts"
	"github.com/cschleiden/go-dialogflow/internal/workflowerrors"
	"github.com/cschleiden/go-dialogflow/worker"
	wf "github.com/cschleiden/go-dialogflow/workflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingAdapter struct {
	sent []string
}

func (a *recordingAdapter) SendActivity(_ context.Context, activity *dialog.Activity) (*dialog.ResourceResponse, error) {
	a.sent = append(a.sent, activity.Text)
	return &dialog.ResourceResponse{ID: strconv.Itoa(len(a.sent))}, nil
}

type conversation struct {
	id      string
	adapter *recordingAdapter
}

func newConversation() *conversation {
	return &conversation{id: uuid.NewString(), adapter: &recordingAdapter{}}
}

func (c *conversation) send(ctx context.Context, w *worker.Worker, text string) (dialog.TurnResult, error) {
	return w.ProcessActivity(ctx, &dialog.Activity{
		Type:           dialog.ActivityTypeMessage,
		Text:           text,
		ChannelID:      "test",
		ConversationID: c.id,
		From:           dialog.ChannelAccount{ID: "user"},
		Recipient:      dialog.ChannelAccount{ID: "bot"},
	}, c.adapter)
}

type orderOptions struct {
	Currency string `json:"currency"`
}

func orderWorkflow(ctx wf.Context, o orderOptions) (string, error) {
	if _, err := wf.SendMessage("Welcome!").Await(ctx); err != nil {
		return "", err
	}

	item, err := wf.Prompt[string]("text", prompts.PromptOptions{Prompt: "What would you like?"}).Await(ctx)
	if err != nil {
		return "", err
	}

	price, err := wf.Then(
		wf.Call(func(ctx context.Context, tc dialog.TurnContext) (int, error) {
			return len(item), nil
		}),
		func(ctx context.Context, tc dialog.TurnContext, n int) (string, error) {
			return fmt.Sprintf("%d %s", n*10, o.Currency), nil
		},
	).Await(ctx)
	if err != nil {
		return "", err
	}

	confirmed, err := wf.Prompt[bool]("confirm", prompts.PromptOptions{Prompt: "That is " + price + ". Order?"}).Await(ctx)
	if err != nil {
		return "", err
	}

	if !confirmed {
		return "Maybe next time.", nil
	}

	return "Ordered " + item + ".", nil
}

// EndToEndBackendTest runs conversations through a worker persisting its state in the backend under test.
func EndToEndBackendTest(t *testing.T, setup func(t *testing.T) backend.Backend, teardown func(t *testing.T, b backend.Backend)) {
	tests := []struct {
		name string
		f    func(t *testing.T, ctx context.Context, b backend.Backend)
	}{
		{
			name: "MultiTurnConversation",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				w := newOrderWorker(t, b, false)
				c := newConversation()

				for _, text := range []string{"hi", "pizza", "yes"} {
					_, err := c.send(ctx, w, text)
					require.NoError(t, err)
				}

				require.Equal(t, []string{
					"Welcome!",
					"What would you like?",
					"That is 50 EUR. Order?",
					"Ordered pizza.",
				}, c.adapter.sent)

				s, err := b.GetConversationState(ctx, c.id)
				require.NoError(t, err)
				require.Equal(t, int64(3), s.Version)
				require.Empty(t, s.DialogStack)
			},
		},
		{
			name: "MultiTurnConversation_WithoutCache",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				w := newOrderWorker(t, b, true)
				c := newConversation()

				for _, text := range []string{"hi", "tea", "no"} {
					_, err := c.send(ctx, w, text)
					require.NoError(t, err)
				}

				require.Equal(t, "Maybe next time.", c.adapter.sent[len(c.adapter.sent)-1])
			},
		},
		{
			name: "ConversationsAreIsolated",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				w := newOrderWorker(t, b, true)
				c1, c2 := newConversation(), newConversation()

				_, err := c1.send(ctx, w, "hi")
				require.NoError(t, err)
				_, err = c2.send(ctx, w, "hi")
				require.NoError(t, err)
				_, err = c1.send(ctx, w, "soup")
				require.NoError(t, err)
				_, err = c2.send(ctx, w, "salad")
				require.NoError(t, err)

				require.Equal(t, "That is 40 EUR. Order?", c1.adapter.sent[2])
				require.Equal(t, "That is 50 EUR. Order?", c2.adapter.sent[2])
			},
		},
		{
			name: "ConcurrentTurnConflicts",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				first := newOrderWorker(t, b, false)
				second := newOrderWorker(t, b, false)
				c := newConversation()

				_, err := c.send(ctx, first, "hi")
				require.NoError(t, err)
				_, err = c.send(ctx, second, "pizza")
				require.NoError(t, err)

				_, err = c.send(ctx, first, "pizza")
				require.ErrorIs(t, err, backend.ErrConflict)

				r, err := c.send(ctx, first, "yes")
				require.NoError(t, err)
				require.Equal(t, dialog.StatusComplete, r.Status)
			},
		},
		{
			name: "DivergedHistoryIsNotSaved",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				w := newOrderWorker(t, b, true)
				c := newConversation()

				_, err := c.send(ctx, w, "hi")
				require.NoError(t, err)

				// A new version of the workflow that no longer greets first
				changed := worker.New(b, &worker.Options{RootDialog: "order", RootDialogOptions: orderOptions{Currency: "EUR"}, DisableStateCache: true})
				require.NoError(t, changed.RegisterDialog(prompts.NewTextPrompt("text")))
				require.NoError(t, changed.RegisterDialog(prompts.NewConfirmPrompt("confirm")))
				require.NoError(t, worker.RegisterWorkflow(changed, "order", func(ctx wf.Context, o orderOptions) (string, error) {
					return wf.Prompt[string]("text", nil).Await(ctx)
				}))

				_, err = c.send(ctx, changed, "pizza")
				var de *workflowerrors.DivergenceError
				require.True(t, errors.As(err, &de))

				s, err := b.GetConversationState(ctx, c.id)
				require.NoError(t, err)
				require.Equal(t, int64(1), s.Version)

				// The original workflow picks up where it left off
				_, err = c.send(ctx, w, "pizza")
				require.NoError(t, err)
			},
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setup(t)

			tt.f(t, ctx, b)

			if teardown != nil {
				teardown(t, b)
			}
		})
	}
}

func newOrderWorker(t *testing.T, b backend.Backend, disableCache bool) *worker.Worker {
	w := worker.New(b, &worker.Options{
		RootDialog:        "order",
		RootDialogOptions: orderOptions{Currency: "EUR"},
		DisableStateCache: disableCache,
	})

	require.NoError(t, w.RegisterDialog(prompts.NewTextPrompt("text")))
	require.NoError(t, w.RegisterDialog(prompts.NewConfirmPrompt("confirm")))
	require.NoError(t, worker.RegisterWorkflow(w, "order", orderWorkflow))

	return w
}

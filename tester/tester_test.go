package tester

import (
	"context"
	"testing"
	"time"

	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/dialog/prompts"
	"github.com/cschleiden/go-dialogflow/internal/workflowerrors"
	wf "github.com/cschleiden/go-dialogflow/workflow"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type greeting struct {
	Salutation string `json:"salutation"`
}

func greet(ctx wf.Context, o greeting) (string, error) {
	name, err := wf.Prompt[string]("name", prompts.PromptOptions{Prompt: "What's your name?"}).Await(ctx)
	if err != nil {
		return "", err
	}

	if _, err := wf.SendMessage(o.Salutation + ", " + name + "!").Await(ctx); err != nil {
		return "", err
	}

	return "bye " + name, nil
}

func Test_ConversationTester(t *testing.T) {
	ct := NewConversationTester(greet,
		WithOptions(greeting{Salutation: "Hello"}),
		WithDialogs(prompts.NewTextPrompt("name")),
	)

	sent, err := ct.Send("hi")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	require.Equal(t, "What's your name?", sent[0].Text)
	require.Equal(t, UserID, sent[0].Recipient.ID)
	require.False(t, ct.Completed())

	ws, err := ct.WorkflowState()
	require.NoError(t, err)
	require.Equal(t, history.KindPrompt, ws.ResumeState.Kind)

	replies, err := ct.SendTexts("Ada")
	require.NoError(t, err)
	require.Equal(t, []string{"Hello, Ada!", "bye Ada"}, replies)

	require.True(t, ct.Completed())
	r, err := ct.Result()
	require.NoError(t, err)
	require.Equal(t, "bye Ada", r)

	require.Len(t, ct.Replies(), 3)
}

func Test_ConversationTester_MockClock(t *testing.T) {
	start := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	ct := NewConversationTester(func(ctx wf.Context, _ any) (time.Time, error) {
		if _, err := wf.ReceiveActivity().Await(ctx); err != nil {
			return time.Time{}, err
		}

		return ctx.Now(), nil
	}, WithStartTime(start))

	_, err := ct.Send("first")
	require.NoError(t, err)

	ct.Clock().Add(time.Hour)

	_, err = ct.Send("second")
	require.NoError(t, err)

	r, err := ct.Result()
	require.NoError(t, err)
	require.True(t, r.Equal(start.Add(time.Hour)))
}

func Test_ConversationTester_NotCompleted(t *testing.T) {
	ct := NewConversationTester(func(ctx wf.Context, _ any) (string, error) {
		a, err := wf.ReceiveActivity().Await(ctx)
		if err != nil {
			return "", err
		}

		return a.Text, nil
	})

	_, err := ct.Send("hi")
	require.NoError(t, err)

	_, err = ct.Result()
	require.Error(t, err)
}

func Test_ConversationTester_Divergence(t *testing.T) {
	calls := 0

	ct := NewConversationTester(func(ctx wf.Context, _ any) (string, error) {
		calls++

		// Non-deterministic workflow code: the effect differs on replay
		id := "first"
		if calls > 1 {
			id = "second"
		}

		if _, err := wf.Call(func(ctx context.Context, tc dialog.TurnContext) (int, error) {
			return 1, nil
		}).WithID(id).Await(ctx); err != nil {
			return "", err
		}

		_, err := wf.ReceiveActivity().Await(ctx)
		return "", err
	})

	_, err := ct.Send("hi")
	require.NoError(t, err)

	_, err = ct.Send("again")
	var de *workflowerrors.DivergenceError
	require.ErrorAs(t, err, &de)
}

package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/backend/payload"
	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/internal/fn"
	"github.com/cschleiden/go-dialogflow/internal/workflowerrors"
)

// SignInFailedMessage is the message of the error returned by CallAsUser when no token was acquired.
const SignInFailedMessage = "Sign-in failed."

var errRestartResumed = errors.New("restart cannot be resumed")

// Call creates a task that invokes f within the turn. The persistent identifier is the fully
// qualified name of f.
func Call[T any](f func(ctx context.Context, tc dialog.TurnContext) (T, error)) Task[T] {
	return CallWithCodec(f, JSONCodec[T]())
}

// CallWithCodec is like Call, but persists the result using the given codec.
func CallWithCodec[R, O any](f func(ctx context.Context, tc dialog.TurnContext) (R, error), codec Codec[R, O]) Task[O] {
	return newTask(callEffect{
		kind: history.KindAsyncCall,
		id:   fn.FullName(f),
		fn: func(ctx context.Context, tc dialog.TurnContext, c converter.Converter) (payload.Payload, error) {
			v, err := f(ctx, tc)
			if err != nil {
				return nil, err
			}

			return codec.Encode(c, v)
		},
		retry: NoRetry,
	}, codec)
}

// CallAsUser acquires a user token by running the given OAuth dialog and then invokes f with it.
// The task fails with a workflow-semantic error if sign-in did not produce a token.
func CallAsUser[T any](oauthDialogID string, f func(ctx context.Context, token string, tc dialog.TurnContext) (T, error)) Task[T] {
	codec := JSONCodec[T]()

	return newTask(suspendEffect{
		kind: history.KindUser,
		id:   fmt.Sprintf("(%q, %s)", oauthDialogID, fn.FullName(f)),
		suspend: func(ctx context.Context, dc *dialog.Context) (dialog.TurnResult, error) {
			return dc.BeginDialog(ctx, oauthDialogID, nil)
		},
		resume: func(ctx context.Context, tc dialog.TurnContext, c converter.Converter, resumeResult any, retry RetryPolicy) (history.Result, error) {
			token, err := tokenFromResult(c, resumeResult)
			if err != nil || token == nil || token.Token == "" {
				return history.Failed(workflowerrors.New(SignInFailedMessage)), nil
			}

			return applyRetryPolicy(ctx, retry, func() (payload.Payload, error) {
				v, err := f(ctx, token.Token, tc)
				if err != nil {
					return nil, err
				}

				return codec.Encode(c, v)
			}), nil
		},
		retry: NoRetry,
	}, codec)
}

func tokenFromResult(c converter.Converter, v any) (*dialog.TokenResponse, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *dialog.TokenResponse:
		return t, nil
	case dialog.TokenResponse:
		return &t, nil
	}

	p, err := c.To(v)
	if err != nil {
		return nil, err
	}

	return converter.Decode[*dialog.TokenResponse](c, p)
}

// CallDialog begins the given child dialog and suspends the workflow until it ends. The value of
// the task is the result the child dialog ended with.
func CallDialog[T any](dialogID string, options any) Task[T] {
	return newTask(suspendEffect{
		kind: history.KindPrompt,
		id:   dialogID,
		suspend: func(ctx context.Context, dc *dialog.Context) (dialog.TurnResult, error) {
			return dc.BeginDialog(ctx, dialogID, options)
		},
		resume: func(ctx context.Context, tc dialog.TurnContext, c converter.Converter, resumeResult any, retry RetryPolicy) (history.Result, error) {
			return encodeResumeResult(c, resumeResult), nil
		},
		retry: NoRetry,
	}, JSONCodec[T]())
}

// Prompt runs the prompt dialog with the given id. It is equivalent to CallDialog.
func Prompt[T any](dialogID string, options any) Task[T] {
	return CallDialog[T](dialogID, options)
}

// SendActivityID is the persistent identifier shared by all SendActivity tasks.
const SendActivityID = "workflow.SendActivity"

// SendActivity sends the given activity to the conversation.
func SendActivity(activity *dialog.Activity) Task[*dialog.ResourceResponse] {
	return Call(func(ctx context.Context, tc dialog.TurnContext) (*dialog.ResourceResponse, error) {
		return tc.SendActivity(ctx, activity)
	}).WithID(SendActivityID)
}

// SendMessage sends a text message to the conversation.
func SendMessage(text string) Task[*dialog.ResourceResponse] {
	return SendActivity(dialog.MessageActivity(text))
}

// ReceiveActivity suspends the workflow until the next message of the user arrives.
func ReceiveActivity() Task[*dialog.Activity] {
	return newTask(suspendEffect{
		kind: history.KindWait,
		id:   "",
		suspend: func(ctx context.Context, dc *dialog.Context) (dialog.TurnResult, error) {
			return dialog.EndOfTurn, nil
		},
		resume: func(ctx context.Context, tc dialog.TurnContext, c converter.Converter, resumeResult any, retry RetryPolicy) (history.Result, error) {
			return encodeResumeResult(c, tc.Activity()), nil
		},
		retry: NoRetry,
	}, JSONCodec[*dialog.Activity]())
}

// Restart replaces the running workflow with a fresh instance started with the given options. The
// new instance starts within the same turn, awaiting the returned task never returns.
func Restart(options any) Task[struct{}] {
	return newTask(suspendEffect{
		kind: history.KindRestart,
		id:   "",
		suspend: func(ctx context.Context, dc *dialog.Context) (dialog.TurnResult, error) {
			active := dc.ActiveDialog()
			if active == nil {
				return dialog.TurnResult{}, dialog.ErrNoActiveDialog
			}

			return dc.ReplaceDialog(ctx, active.ID, options)
		},
		resume: func(context.Context, dialog.TurnContext, converter.Converter, any, RetryPolicy) (history.Result, error) {
			return history.Result{}, errRestartResumed
		},
		retry: NoRetry,
	}, JSONCodec[struct{}]())
}

package worker

import (
	"context"
	"time"

	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/worker/cache"
)

// CompletionHandler is called when the root dialog completed during a turn.
type CompletionHandler func(ctx context.Context, tc dialog.TurnContext, result any) error

type Options struct {
	// RootDialog is the dialog begun when a conversation has no active dialog.
	RootDialog string

	// RootDialogOptions are passed to the root dialog when it is begun.
	RootDialogOptions any

	// StateCacheSize is the max size of the conversation state cache. Defaults to 128
	StateCacheSize int

	// StateCacheTTL is the max TTL of the conversation state cache. Defaults to 10 seconds
	StateCacheTTL time.Duration

	// StateCache is the cache to use for conversation states. If nil, a default cache implementation
	// will be used.
	StateCache cache.StateCache

	// DisableStateCache loads the state of every turn from the backend.
	DisableStateCache bool

	// CompletionHandler is called with the result of a completed root dialog. Defaults to
	// SendCompletionResult.
	CompletionHandler CompletionHandler
}

var DefaultOptions = Options{
	StateCacheSize: 128,
	StateCacheTTL:  time.Second * 10,
	StateCache:     nil,

	CompletionHandler: SendCompletionResult,
}

// SendCompletionResult sends text and activity results back to the conversation. Other results are
// dropped.
func SendCompletionResult(ctx context.Context, tc dialog.TurnContext, result any) error {
	var a *dialog.Activity

	switch r := result.(type) {
	case string:
		if r == "" {
			return nil
		}

		a = dialog.MessageActivity(r)
	case *dialog.Activity:
		a = r
	default:
		return nil
	}

	_, err := tc.SendActivity(ctx, a)
	return err
}

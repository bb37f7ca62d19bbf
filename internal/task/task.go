package task

import (
	"context"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/dialog"
)

// Effect is a unit of interaction with the outside world yielded by workflow code.
type Effect interface {
	// Kind returns the stable type discriminator recorded in the history
	Kind() string

	// ID returns the persistent identifier of this effect. It is hashed before it is recorded.
	ID() string
}

// Async effects are executed immediately within the current turn.
type Async interface {
	Effect

	// Invoke executes the effect, applying its retry policy. Only the final outcome is returned.
	Invoke(ctx context.Context, tc dialog.TurnContext, c converter.Converter) history.Result
}

// Suspending effects hand control back to the host and are resumed in a later turn.
type Suspending interface {
	Effect

	// OnSuspend produces the externally visible outcome of the turn
	OnSuspend(ctx context.Context, dc *dialog.Context) (dialog.TurnResult, error)

	// OnResume produces the outcome of the effect from the external resume payload. A returned error
	// is a protocol fault, failures of the effect itself are reported in the result.
	OnResume(ctx context.Context, tc dialog.TurnContext, c converter.Converter, resumeResult any) (history.Result, error)
}

package workflow

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/backend/payload"
	"github.com/cschleiden/go-dialogflow/internal/contextvalue"
	"github.com/cschleiden/go-dialogflow/internal/workflowerrors"
)

// RetryPolicy decides whether a failed invocation is attempted again. attempt is the number of the
// attempt that just failed, starting at 1. A policy blocks for the retry delay before returning true.
// Policies created by NewRetryPolicy wait on the workflow's clock.
type RetryPolicy func(ctx context.Context, err error, attempt int) bool

// NoRetry never retries.
func NoRetry(context.Context, error, int) bool {
	return false
}

type RetrySettings struct {
	// Maximum number of attempts, including the first one. Defaults to 5.
	MaxAttempts int

	// RetryDelay returns the time to wait after the given failed attempt
	RetryDelay func(attempt int) time.Duration

	// ErrorFilter returns true for errors that may be retried. Defaults to CanRetry, which excludes
	// workflow-semantic errors.
	ErrorFilter func(err error) bool
}

const defaultMaxAttempts = 5

var DefaultRetrySettings = RetrySettings{
	MaxAttempts: defaultMaxAttempts,
	RetryDelay:  ExponentialDelay(50*time.Millisecond, time.Second),
	ErrorFilter: CanRetry,
}

// ExponentialDelay doubles the delay after every attempt, starting at base and capped at max.
func ExponentialDelay(base, max time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		b := &backoff.ExponentialBackOff{
			InitialInterval:     base,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         max,
			MaxElapsedTime:      0,
			Stop:                backoff.Stop,
			Clock:               backoff.SystemClock,
		}
		b.Reset()

		d := b.NextBackOff()
		for i := 1; i < attempt; i++ {
			d = b.NextBackOff()
		}

		return d
	}
}

// ExponentialRetry retries up to 5 attempts with exponential delays, and never retries
// workflow-semantic errors.
func ExponentialRetry(base, max time.Duration) RetryPolicy {
	return NewRetryPolicy(RetrySettings{
		MaxAttempts: defaultMaxAttempts,
		RetryDelay:  ExponentialDelay(base, max),
	})
}

func NewRetryPolicy(settings RetrySettings) RetryPolicy {
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = defaultMaxAttempts
	}

	if settings.ErrorFilter == nil {
		settings.ErrorFilter = CanRetry
	}

	return func(ctx context.Context, err error, attempt int) bool {
		if attempt >= settings.MaxAttempts || !settings.ErrorFilter(err) {
			return false
		}

		if settings.RetryDelay == nil {
			return ctx.Err() == nil
		}

		t := contextvalue.Clock(ctx).Timer(settings.RetryDelay(attempt))
		defer t.Stop()

		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			return true
		}
	}
}

// applyRetryPolicy invokes fn until it succeeds or the policy declines another attempt. Only the
// final outcome is returned.
func applyRetryPolicy(ctx context.Context, policy RetryPolicy, fn func() (payload.Payload, error)) history.Result {
	if policy == nil {
		policy = NoRetry
	}

	for attempt := 1; ; attempt++ {
		p, err := invokeSafely(fn)
		if err == nil {
			return history.Succeeded(p)
		}

		if !policy(ctx, err, attempt) {
			return history.Failed(err)
		}
	}
}

func invokeSafely(fn func() (payload.Payload, error)) (p payload.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = workflowerrors.NewPanicError(r)
		}
	}()

	return fn()
}

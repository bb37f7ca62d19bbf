package contextvalue

import (
	"context"

	"github.com/benbjohnson/clock"
)

type clockKey struct{}

// WithClock sets the clock used for retry delays of effects invoked with the returned context.
func WithClock(ctx context.Context, c clock.Clock) context.Context {
	return context.WithValue(ctx, clockKey{}, c)
}

// Clock returns the clock set by WithClock, or the wall clock.
func Clock(ctx context.Context) clock.Clock {
	if v, ok := ctx.Value(clockKey{}).(clock.Clock); ok && v != nil {
		return v
	}

	return clock.New()
}

package executor

import (
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/metrics"
	im "github.com/cschleiden/go-dialogflow/internal/metrics"
	"github.com/cschleiden/go-dialogflow/internal/tracing"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Metrics   metrics.Client
	Clock     clock.Clock
	Converter converter.Converter
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Options) {
		o.Tracer = tracer
	}
}

func WithMetrics(client metrics.Client) Option {
	return func(o *Options) {
		o.Metrics = client
	}
}

// WithClock sets the clock used for deterministic time reads and metrics.
func WithClock(clock clock.Clock) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

func WithConverter(c converter.Converter) Option {
	return func(o *Options) {
		o.Converter = c
	}
}

func applyOptions(opts ...Option) Options {
	o := Options{
		Logger:    slog.Default(),
		Tracer:    tracing.Tracer(nil),
		Metrics:   im.NewNoopMetricsClient(),
		Clock:     clock.New(),
		Converter: converter.DefaultConverter,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestWithSpanError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	_, span := Tracer(tp).Start(context.Background(), "failing")
	err := WithSpanError(span, errors.New("boom"))
	span.End()

	require.EqualError(t, err, "boom")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status.Code)
	require.Equal(t, "boom", spans[0].Status.Description)
}

func TestTracer_Nil(t *testing.T) {
	_, span := Tracer(nil).Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid())
	span.End()
}

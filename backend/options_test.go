package backend

import (
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	im "github.com/cschleiden/go-dialogflow/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func TestDefaultValues(t *testing.T) {
	opts := ApplyOptions()

	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Metrics)
	assert.NotNil(t, opts.TracerProvider)
	assert.NotNil(t, opts.Converter)
	assert.NotNil(t, opts.Clock)
}

func TestWithClock(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	opts := ApplyOptions(WithClock(mock))

	assert.Equal(t, mock.Now(), opts.Clock.Now())
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	opts := ApplyOptions(WithLogger(nil))

	assert.Same(t, slog.Default(), opts.Logger)
}

func TestWithMetrics(t *testing.T) {
	r := im.NewRecorder()

	opts := ApplyOptions(WithMetrics(r))

	assert.Same(t, r, opts.Metrics)
}

func TestRemovalOptions(t *testing.T) {
	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	o := ApplyRemovalOptions(RemoveUpdatedBefore(before))

	assert.Equal(t, before, o.UpdatedBefore)
}

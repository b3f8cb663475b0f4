package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	shutdown, err := Setup(context.Background(), Config{Enabled: true}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ctx := WithRequestID(context.Background(), "req-1")
	_, end := StartSpan(ctx, "mode", "switch")
	end(errors.New("exit status 1"))

	_, end = StartSpan(ctx, "mode", "switch")
	end(nil)

	counters := Counters()
	assert.Equal(t, float64(1), counters["mode.switch{outcome=error}"])
	assert.Equal(t, float64(1), counters["mode.switch{outcome=ok}"])
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), "obs span end")
}

func TestDisabledIsSilent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	shutdown, err := Setup(context.Background(), Config{Enabled: false}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })
	buf.Reset()

	_, end := StartSpan(context.Background(), "ocr", "recognize")
	end(nil)
	RecordMetric(context.Background(), "ocr.bytes", 10, nil)

	assert.False(t, Enabled())
	assert.Empty(t, buf.String())
	assert.Empty(t, Counters())
}

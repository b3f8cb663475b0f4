package observability

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestIDKey struct{}

// WithRequestID tags ctx so spans started from it carry the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Enabled reports whether observability has been toggled on.
func Enabled() bool {
	_, cfg := currentLogger()
	return cfg.Enabled
}

// StartSpan logs the start and end of an operation. The returned func
// must be called exactly once with the operation's error.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger, cfg := currentLogger()
	if logger == nil || !cfg.Enabled {
		return ctx, func(error) {}
	}

	start := time.Now()
	base := []slog.Attr{
		slog.String("component", component),
		slog.String("operation", operation),
	}
	if id := RequestID(ctx); id != "" {
		base = append(base, slog.String("request_id", id))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "obs span start", base...)

	return ctx, func(err error) {
		level := slog.LevelDebug
		outcome := "ok"
		if err != nil {
			level = slog.LevelError
			outcome = "error"
		}

		attrs := append([]slog.Attr{}, base...)
		attrs = append(attrs, slog.Duration("duration", time.Since(start)))
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "obs span end", attrs...)

		RecordMetric(ctx, component+"."+operation, 1, map[string]string{"outcome": outcome})
	}
}

var (
	countersMu sync.Mutex
	counters   = map[string]float64{}
)

// RecordMetric logs a datapoint and adds value to the running total kept
// for the metric name and label set.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger, cfg := currentLogger()
	if logger == nil || !cfg.Enabled {
		return
	}

	countersMu.Lock()
	counters[counterKey(name, labels)] += value
	countersMu.Unlock()

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	for k, v := range labels {
		attrs = append(attrs, slog.String(k, v))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
}

// Counters returns a copy of the accumulated metric totals keyed by
// name{label=value,...}.
func Counters() map[string]float64 {
	countersMu.Lock()
	defer countersMu.Unlock()
	out := make(map[string]float64, len(counters))
	for k, v := range counters {
		out[k] = v
	}
	return out
}

func resetCounters() {
	countersMu.Lock()
	counters = map[string]float64{}
	countersMu.Unlock()
}

func counterKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}

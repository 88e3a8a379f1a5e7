package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)

	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	return recorder
}

func TestAddSpanError_NilSpanIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		AddSpanError(nil, errors.New("boom"))
	})
}

func TestAddSpanError_NonRecordingSpanIsNoop(t *testing.T) {
	span := trace.SpanFromContext(context.Background())

	assert.NotPanics(t, func() {
		AddSpanError(span, errors.New("boom"))
	})
}

func TestAddSpanEvent_NilSpanIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		AddSpanEvent(nil, "something.happened", nil)
	})
}

func TestSpanWrapper_RecordsError(t *testing.T) {
	recorder := withRecorder(t)

	wantErr := errors.New("boom")
	err := SpanWrapper(context.Background(), "work", nil, func(ctx context.Context) error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "work", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestCacheSpanWrapper_NamesSpanByBackendAndOperation(t *testing.T) {
	recorder := withRecorder(t)

	err := CacheSpanWrapper(context.Background(), "redis", "get", "user:1", func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "cache.redis.get", spans[0].Name())

	attrs := map[string]string{}
	for _, attr := range spans[0].Attributes() {
		attrs[string(attr.Key)] = attr.Value.Emit()
	}

	assert.Equal(t, "redis", attrs["cache.backend"])
	assert.Equal(t, "get", attrs["cache.operation"])
	assert.Equal(t, "user:1", attrs["cache.key"])
}

func TestGetTraceID(t *testing.T) {
	withRecorder(t)

	assert.Empty(t, GetTraceID(context.Background()))

	ctx, span := StartSpan(context.Background(), "work")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
	assert.Equal(t, span.SpanContext().SpanID().String(), GetSpanID(ctx))
}

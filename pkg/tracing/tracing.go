package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "userapi"

// StartSpan creates a new span from the context using the shared tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// CreateChildSpan creates a child span with initial attributes.
func CreateChildSpan(ctx context.Context, name string, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddSpanError marks a span as failed and records the exception.
func AddSpanError(span trace.Span, err error) {
	if span == nil || !span.IsRecording() {
		return
	}

	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent adds a timestamped event to the span.
func AddSpanEvent(span trace.Span, name string, attrs []attribute.KeyValue) {
	if span == nil {
		return
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AddCacheAttributes adds cache-specific attributes to a span.
func AddCacheAttributes(span trace.Span, backend, operation, key string) {
	span.SetAttributes(
		attribute.String("cache.backend", backend),
		attribute.String("cache.operation", operation),
		attribute.String("cache.key", key),
	)
}

// GetTraceID extracts the trace ID from the context, or "" when no span is active.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID extracts the span ID from the context, or "" when no span is active.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}

// SpanWrapper runs fn inside a child span and records any returned error.
func SpanWrapper(ctx context.Context, name string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := CreateChildSpan(ctx, name, attrs)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		AddSpanError(span, err)
	}

	return err
}

// CacheSpanWrapper wraps a cache round-trip in a span named cache.<backend>.<operation>.
func CacheSpanWrapper(ctx context.Context, backend, operation, key string, fn func(context.Context) error) error {
	attrs := []attribute.KeyValue{
		attribute.String("cache.backend", backend),
		attribute.String("cache.operation", operation),
		attribute.String("cache.key", key),
	}

	return SpanWrapper(ctx, fmt.Sprintf("cache.%s.%s", backend, operation), attrs, fn)
}

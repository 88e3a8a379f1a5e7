package shared

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDMiddleware assigns an X-Request-ID when the client did not send
// one, and exposes it to the rest of the chain.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()
	}
}

// TracingMiddleware opens exactly one span per inbound request and closes it
// exactly once, whether the request completes normally, fails through the
// error finalizer, or panics mid-flight. The span is named after the method
// and the route template, not the raw URL, to keep series cardinality
// bounded. Request count and latency metrics are derived from the same
// span lifecycle.
func TracingMiddleware(tracer trace.Tracer, metrics *AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		start := time.Now()

		ctx, span := tracer.Start(c.Request.Context(),
			c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(c.Request.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPURLKey.String(c.Request.URL.String()),
				semconv.HTTPHostKey.String(c.Request.Host),
			),
		)

		if requestID := c.GetString("request_id"); requestID != "" {
			span.SetAttributes(attribute.String("app.request.id", requestID))
		}

		// Explicit propagation: downstream code reaches the span only
		// through the request context, never through package globals.
		c.Request = c.Request.WithContext(ctx)

		var once sync.Once
		finish := func(status int) {
			once.Do(func() {
				span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
				metrics.RecordRequest(ctx, c.Request.Method, route, strconv.Itoa(status), time.Since(start))
				span.End()
			})
		}

		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", r)
				}

				span.RecordError(err, trace.WithStackTrace(true))
				span.SetStatus(codes.Error, err.Error())

				status := http.StatusInternalServerError
				metrics.RecordError(ctx, strconv.Itoa(status), KindOf(err))

				if !c.Writer.Written() {
					c.AbortWithStatusJSON(status, NewErrorResponse(MessageOf(err)))
				}

				finish(status)
				return
			}

			finish(c.Writer.Status())
		}()

		c.Next()
	}
}

package shared

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ErrorPayload struct {
	Message string `json:"message"`
}

// ErrorResponse is the uniform client-facing error body.
type ErrorResponse struct {
	Error ErrorPayload `json:"error"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorPayload{Message: message}}
}

// ErrorFinalizer is the terminal failure path. Handlers attach errors with
// c.Error and abort; this middleware runs once on the way out, records the
// failure on the active span (when one exists and is still recording),
// bumps the error counter, logs the diagnostics, and writes the uniform
// error body. Stack traces go to the log only.
func ErrorFinalizer(metrics *AppMetrics, logger *otelzap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		err := last.Err
		ctx := c.Request.Context()
		status := StatusOf(err)
		kind := KindOf(err)

		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() && span.IsRecording() {
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err, trace.WithStackTrace(true))
		}

		metrics.RecordError(ctx, strconv.Itoa(status), kind)

		logger.Ctx(ctx).Error("Error handling request",
			zap.String("method", c.Request.Method),
			zap.String("url", c.Request.URL.String()),
			zap.String("client_ip", GetClientIP(c)),
			zap.Int("status", status),
			zap.String("error_type", kind),
			zap.Error(err),
			zap.Stack("stack"),
		)

		if !c.Writer.Written() {
			c.JSON(status, NewErrorResponse(MessageOf(err)))
		}
	}
}

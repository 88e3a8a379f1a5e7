package shared

import (
	"context"
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the service logger. The otelzap wrapper injects trace_id
// and span_id into every entry logged through Ctx, keeping logs correlated
// with the active span.
func NewLogger(environment string) (*otelzap.Logger, error) {
	var config zap.Config

	if environment == "development" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "timestamp"

	zapLogger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	return otelzap.New(zapLogger, otelzap.WithMinLevel(zapcore.DebugLevel)), nil
}

func LogInfo(ctx context.Context, logger *otelzap.Logger, msg string, fields ...zap.Field) {
	logger.Ctx(ctx).Info(msg, fields...)
}

func LogError(ctx context.Context, logger *otelzap.Logger, err error, msg string, fields ...zap.Field) {
	logger.Ctx(ctx).Error(msg, append(fields, zap.Error(err))...)
}

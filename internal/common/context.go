package common

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyLogger    contextKey = "logger"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithLogger stores a request-scoped logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, logger)
}

// LoggerFromContext returns the request-scoped logger, or fallback when none is set.
// The request ID, if any, is attached as a field.
func LoggerFromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	logger, ok := ctx.Value(ContextKeyLogger).(*zap.Logger)
	if !ok || logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		return logger.With(zap.String("request_id", rid))
	}
	return logger
}

// WithTimeout creates a context with the specified timeout
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

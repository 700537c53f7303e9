package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	// LoggerKey carries the request-scoped logger.
	LoggerKey contextKey = "logger"
	// RequestIDKey carries the request id.
	RequestIDKey contextKey = "request_id"
	// LocationIDKey carries the restaurant location id.
	LocationIDKey contextKey = "location_id"
	// UserIDKey carries the authenticated user id.
	UserIDKey contextKey = "user_id"
)

// WithContext attaches a logger to the context.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the attached logger, or a nop logger when none was
// attached. Callers never need a nil check.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

func enrich(ctx context.Context, logger *zap.Logger, key contextKey, field, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	logger = logger.With(zap.String(field, value))
	return WithContext(ctx, logger), logger
}

// WithRequestID stores the request id and returns a logger tagged with it.
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return enrich(ctx, logger, RequestIDKey, "request_id", requestID)
}

// WithLocationID stores the location id and returns a logger tagged with it.
func WithLocationID(ctx context.Context, logger *zap.Logger, locationID string) (context.Context, *zap.Logger) {
	return enrich(ctx, logger, LocationIDKey, "location_id", locationID)
}

// WithUserID stores the user id and returns a logger tagged with it.
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return enrich(ctx, logger, UserIDKey, "user_id", userID)
}

// GetRequestID returns the stored request id, or "".
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetLocationID returns the stored location id, or "".
func GetLocationID(ctx context.Context) string {
	return stringValue(ctx, LocationIDKey)
}

// GetUserID returns the stored user id, or "".
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// KeyPrefixKey is the context key for the caller's credential prefix.
	KeyPrefixKey contextKey = "key_prefix"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithKeyPrefix records the caller's credential prefix on the context.
// Pass the full credential; only KeyPrefix of it is stored.
func WithKeyPrefix(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, KeyPrefixKey, KeyPrefix(credential))
}

// GetKeyPrefix retrieves the credential prefix from the context.
func GetKeyPrefix(ctx context.Context) string {
	if prefix, ok := ctx.Value(KeyPrefixKey).(string); ok {
		return prefix
	}
	return ""
}

// FromContext returns the default logger with the context's request fields.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if requestID := GetRequestID(ctx); requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	if prefix := GetKeyPrefix(ctx); prefix != "" {
		logger = logger.With("key", prefix)
	}
	return logger
}

package middleware

import (
	"context"
	"time"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// Context keys for storing values in request context. The request ID lives
// under logging.RequestIDKey so every context logger picks it up.
const (
	// StartTimeKey stores the request start time for latency calculation.
	StartTimeKey contextKey = "start_time"

	// CredentialKey stores the upstream credential resolved for the caller.
	CredentialKey contextKey = "credential"
)

// WithCredential stores the upstream credential for the request.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, CredentialKey, credential)
}

// GetCredential returns the upstream credential resolved by
// CredentialMiddleware, or an empty string.
func GetCredential(ctx context.Context) string {
	if credential, ok := ctx.Value(CredentialKey).(string); ok {
		return credential
	}
	return ""
}

// GetStartTime extracts the request start time from the context.
// Returns zero time if not found.
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"mercator-hq/relay/pkg/telemetry/logging"
)

const (
	// RequestIDHeader is the HTTP header for request ID.
	RequestIDHeader = "X-Request-ID"

	// maxRequestIDLength bounds client-supplied IDs.
	maxRequestIDLength = 128
)

// RequestIDMiddleware assigns each request an ID, stores it on the context
// and echoes it in the X-Request-ID response header. A client-supplied
// X-Request-ID is kept so the client can later cancel the request by ID.
//
// Example usage:
//
//	handler = RequestIDMiddleware(handler)
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		ctx := logging.WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}

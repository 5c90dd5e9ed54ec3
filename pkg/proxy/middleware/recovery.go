package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// error in OpenAI format. The stack is logged; clients only see a generic
// message. http.ErrAbortHandler is re-raised so the server can abort the
// connection as intended.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			logging.FromContext(r.Context()).ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			errResp := types.NewServerError(
				"An internal error occurred. Please try again later.",
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(errResp)
		}()

		next.ServeHTTP(w, r)
	})
}

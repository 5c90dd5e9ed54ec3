// Package middleware provides the HTTP middleware wrapped around the relay's
// handlers.
//
// # Middleware Chain
//
// The server applies the shared middleware outermost first:
//
//	handler = Recovery(RequestID(Logging(CORS(mux))))
//
// CredentialMiddleware wraps only the routes that talk to the upstream, so
// health checks and CORS preflights never need a key.
//
// # Request ID
//
// RequestIDMiddleware keeps a client-supplied X-Request-ID or generates a
// UUID. The ID is stored on the context through the logging package, so
// every context logger includes it, and is echoed in the response. Clients
// that choose their own ID can cancel the request later with
// POST /v1/requests/{id}/cancel.
//
// # Credentials
//
// CredentialMiddleware reads the caller's key from x-api-key or
// Authorization: Bearer, applies the CredentialPolicy and stores the
// resolved upstream credential on the context. Rejected callers get 401.
//
// # Logging
//
// LoggingMiddleware records method, path, status, bytes and latency. Its
// response writer forwards Flush so Server-Sent Events stream through it.
package middleware

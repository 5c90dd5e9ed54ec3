// Package handlers implements the relay's HTTP endpoints.
//
//	POST /v1/chat/completions        relay a completion, single-shot or SSE
//	POST /v1/requests/{id}/cancel    cancel an in-flight request by ID
//	POST /v1/messages/count_tokens   local input token estimate
//	GET  /v1/pool                    session pool snapshot
//	GET  /health                     liveness and key configuration
//	GET  /test-connection            one tiny completion against the small model
//	GET  /                           service banner
//
// Handlers that reach the upstream expect middleware.CredentialMiddleware
// in front of them and read the resolved credential from the context.
//
// # Streaming
//
// A streaming chat request is relayed frame by frame through a
// proxy.SSEWriter. If the stream fails before the first frame the client
// gets an ordinary JSON error with the classified status. After that the
// failure is sent as a final error event and no [DONE] follows.
//
// # Cancellation
//
// ChatHandler registers a context.AfterFunc on the request context, so a
// client disconnect cancels the dispatch. Clients that set X-Request-ID can
// also cancel explicitly through CancelHandler, which only reaches requests
// on the caller's own session.
package handlers

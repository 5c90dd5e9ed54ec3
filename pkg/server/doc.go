// Package server provides the HTTP server for the relay.
//
// The server ties the session pool, dispatcher, model mapper and credential
// policy to the handlers in pkg/proxy/handlers and owns the listener
// lifecycle: start, signal handling and graceful shutdown. The pool, usage
// recorder and tracer are owned by the caller and are closed after Start
// returns.
//
// # Routes
//
//	POST /v1/chat/completions         chat completion, single-shot or SSE
//	POST /v1/requests/{id}/cancel     cancel an in-flight request
//	POST /v1/messages/count_tokens    token estimate
//	GET  /v1/pool                     pool snapshot
//	GET  /health                      configuration health
//	GET  /test-connection             upstream probe
//	GET  /metrics                     Prometheus exposition (configurable)
//	GET  /                            banner
//
// The first three routes sit behind the credential middleware.
//
// # Middleware
//
// Requests pass through, outermost first: panic recovery, request ID,
// access logging, CORS, then trace context extraction.
//
// # Usage
//
//	srv, err := server.New(cfg, server.Dependencies{
//	    Pool:       pool,
//	    Dispatcher: dispatcher,
//	    Mapper:     mapper,
//	    Policy:     policy,
//	    Metrics:    collector,
//	    Version:    version,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	pool.Shutdown()
package server

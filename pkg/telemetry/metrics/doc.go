// Package metrics provides Prometheus metrics for the session pool and the
// dispatcher.
//
// # Metrics
//
// Pool:
//   - relay_sessions_created_total
//   - relay_session_cache_hits_total, relay_session_cache_misses_total
//   - relay_sessions_evicted_total{reason="capacity"|"idle"}
//   - relay_sessions_active
//
// Dispatch:
//   - relay_dispatches_total{model, mode, status}
//   - relay_dispatch_duration_seconds{model, mode}
//   - relay_dispatches_in_flight{mode}
//   - relay_dispatch_errors_total{category}
//   - relay_stream_frames_total{model}
//   - relay_tokens_total{model, type="prompt"|"completion"}
//
// Mode is "single" or "stream". Status is the numeric status analogue, with
// 499 for client cancellation.
//
// # Usage
//
// Collector implements the observer interfaces of both the pool and the
// dispatcher:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	pool, err := session.NewPool(session.Config{Observer: collector})
//	d := dispatch.New(dispatch.Config{Observers: []dispatch.Observer{collector}})
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Model label values are capped by a CardinalityLimiter; models beyond the cap
// are recorded as "other".
package metrics

// Package tracing provides OpenTelemetry tracing for upstream dispatches.
//
// Spans are exported over OTLP/gRPC when tracing is enabled. When disabled,
// Tracer hands out no-op spans so call sites need no conditionals.
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    exporter: otlp
//	    endpoint: localhost:4317
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// The dispatcher opens one span per request ("dispatch.execute" or
// "dispatch.stream") carrying the model, a credential prefix, the final status
// and, for streams, the number of frames delivered.
package tracing

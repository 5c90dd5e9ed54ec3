// Package telemetry groups the relay's observability packages.
//
// # Components
//
//   - logging: slog construction with a runtime-adjustable level, request
//     scoped loggers and credential redaction
//   - metrics: Prometheus collector observing the session pool and the
//     dispatcher, plus the /metrics handler
//   - tracing: OpenTelemetry tracer (OTLP over gRPC, or no-op) used for one
//     span per dispatch, and W3C trace context extraction for HTTP requests
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", RedactSecrets: true})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Logger)
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	pool, _ := session.NewPool(session.Config{Observer: collector})
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	dispatcher := dispatch.New(dispatch.Config{
//	    Observers: []dispatch.Observer{collector},
//	    Tracer:    tracer,
//	})
package telemetry

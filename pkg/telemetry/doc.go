// Package telemetry groups the observability packages used by the proxy.
//
// # Components
//
//   - logging: slog setup with credential redaction
//   - metrics: Prometheus collectors for requests, upscales, caches and
//     WebSocket sessions
//   - tracing: OpenTelemetry spans exported over OTLP/gRPC
//   - health: liveness, readiness and version endpoints under /kurp
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Logging))
//	collector := metrics.NewCollector(prometheus.NewRegistry())
//	tracer, err := tracing.New(ctx, cfg.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
// A nil *metrics.Collector and a nil *tracing.Tracer are valid and record
// nothing, so components accept them unconditionally.
//
// Metrics and tracer are created once per process. Logging is rebuilt on
// every configuration reload so that level and format changes apply without
// a restart.
package telemetry

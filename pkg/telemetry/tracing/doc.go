// Package tracing provides OpenTelemetry distributed tracing for kurp.
//
// Tracing is off by default. When enabled, spans are exported over OTLP/gRPC
// and W3C Trace Context is extracted from incoming requests:
//
//	tracing:
//	  enabled: true
//	  endpoint: otel-collector:4317
//	  insecure: true
//	  sampler: ratio
//	  sample_ratio: 0.1
//
// # Usage
//
//	tracer, err := tracing.New(ctx, cfg.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "transcode")
//	defer span.End()
//	tracing.SetImageAttributes(span, "image/jpeg", len(body))
//
// # Span Hierarchy
//
//	GET /api/v1/books/{bookId}/pages/{page}
//	├── backend.tags
//	└── transcode
//	    └── upscaler.job
//
// A nil *Tracer behaves like Noop and is safe to pass to any component.
package tracing

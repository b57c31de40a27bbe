package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "kurp.*" namespace.
const (
	AttrBackend    = "kurp.backend"
	AttrResourceID = "kurp.resource.id"

	AttrImageFormat = "kurp.image.format"
	AttrImageBytes  = "kurp.image.bytes"
	AttrImageWidth  = "kurp.image.width"
	AttrImageHeight = "kurp.image.height"

	AttrEngine = "kurp.engine"
	AttrScale  = "kurp.engine.scale"
	AttrResult = "kurp.upscale.result"

	AttrCacheHit  = "kurp.cache.hit"
	AttrCacheName = "kurp.cache.name"

	AttrErrorType = "kurp.error.type"
)

// SetImageAttributes records the format and encoded size of an image.
func SetImageAttributes(span trace.Span, format string, size int) {
	span.SetAttributes(
		attribute.String(AttrImageFormat, format),
		attribute.Int(AttrImageBytes, size),
	)
}

// SetDimensionAttributes records the pixel dimensions of a decoded image.
func SetDimensionAttributes(span trace.Span, width, height int) {
	span.SetAttributes(
		attribute.Int(AttrImageWidth, width),
		attribute.Int(AttrImageHeight, height),
	)
}

// SetEngineAttributes records which upscaler handled a job.
func SetEngineAttributes(span trace.Span, engine string, scale int) {
	span.SetAttributes(
		attribute.String(AttrEngine, engine),
		attribute.Int(AttrScale, scale),
	)
}

// SetBackendAttributes records a backend metadata lookup.
func SetBackendAttributes(span trace.Span, backend, resourceID string) {
	span.SetAttributes(
		attribute.String(AttrBackend, backend),
		attribute.String(AttrResourceID, resourceID),
	)
}

// SetCacheAttributes sets cache-related attributes on a span.
func SetCacheAttributes(span trace.Span, hit bool, cacheName string) {
	span.SetAttributes(
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheName, cacheName),
	)
}

// SetResult records the outcome of a transcode.
func SetResult(span trace.Span, result string) {
	span.SetAttributes(attribute.String(AttrResult, result))
}

// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// Every request the proxy serves, passthrough or upscaled, goes through the
// same chain:
//
//	handler = middleware.Chain(middleware.CaptureRoute(mux),
//		middleware.RecoveryMiddleware,
//		middleware.RequestIDMiddleware,
//		middleware.LoggingMiddleware,
//		middleware.MetricsMiddleware(collector),
//		tracing.HTTPMiddleware(tracer),
//	)
//
// Chain takes the middleware outermost first.
//
// # Route labels
//
// Logging and metrics label requests with the ServeMux pattern that matched
// ("GET /api/v1/books/{bookId}/pages/{page}"), never the raw path. The mux
// only records the pattern on the request it receives, so CaptureRoute must
// wrap the mux directly and hand the pattern back through the request
// context.
//
// # Request ID
//
// RequestIDMiddleware keeps a client supplied X-Request-ID of up to 128
// characters and otherwise generates a UUID v4. The ID is written to the
// response, set on the request forwarded upstream and attached to every log
// record made with the request context.
//
// # Logging
//
// LoggingMiddleware logs one structured record per request. 5xx responses
// log at error level and 4xx at warn. Hijacked WebSocket connections are
// logged with status 101 when the session ends.
//
// # Recovery
//
// RecoveryMiddleware turns a handler panic into a 500 error response if
// nothing has been written yet. http.ErrAbortHandler is re-raised so the
// server can abort the connection.
//
// The response writer wrapper shared by these middleware keeps Flush and
// Hijack working, which streamed bodies and WebSocket upgrades depend on.
package middleware

package middleware

import (
	"context"
	"net/http"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// Context keys for storing values in request context.
const (
	// StartTimeKey stores the request start time for latency calculation.
	StartTimeKey contextKey = "start_time"

	// routeKey stores the *routeHolder shared along the chain.
	routeKey contextKey = "route"
)

// routeHolder carries the matched ServeMux pattern back out to middleware
// that runs before routing. ServeMux records the pattern on the request it
// was handed, which is not the request outer middleware holds.
type routeHolder struct {
	pattern string
}

// withRoute makes sure r carries a route holder.
func withRoute(r *http.Request) (*http.Request, *routeHolder) {
	if h, ok := r.Context().Value(routeKey).(*routeHolder); ok {
		return r, h
	}
	h := &routeHolder{}
	return r.WithContext(context.WithValue(r.Context(), routeKey, h)), h
}

// CaptureRoute must wrap the ServeMux directly. After routing it publishes
// the matched pattern to the outer middleware.
func CaptureRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if h, ok := r.Context().Value(routeKey).(*routeHolder); ok {
			h.pattern = r.Pattern
		}
	})
}

// Chain wraps h with the given middleware. The first middleware is the
// outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

package middleware

import (
	"net/http"
	"time"

	"kurp-hq/kurp/pkg/telemetry/metrics"
)

// MetricsMiddleware records request count and latency per matched route.
// Routes are ServeMux patterns, so the label set stays bounded no matter how
// many books and pages are read.
func MetricsMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r, route := withRoute(r)
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			collector.RecordRequest(route.pattern, rw.statusCode, time.Since(start))
		})
	}
}

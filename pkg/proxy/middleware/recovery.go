package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"kurp-hq/kurp/pkg/proxy"
	"kurp-hq/kurp/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// Internal Server Error response in the JSON error format. It logs the panic
// with stack trace for debugging but does not expose internal details to clients.
//
// http.ErrAbortHandler is re-raised so that net/http aborts the response.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := newResponseWriter(w)
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			// Too late for an error body once the response has started.
			if rw.written {
				return
			}
			_ = proxy.WriteErrorResponse(rw, types.NewServerError(
				"An internal error occurred. Please try again later.",
			))
		}()

		next.ServeHTTP(rw, r)
	})
}

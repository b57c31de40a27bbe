package handlers

import (
	"log/slog"
	"net/http"

	"kurp-hq/kurp/pkg/proxy"
)

// PassthroughHandler relays a request upstream and the response back
// without touching either.
type PassthroughHandler struct {
	Upstream Upstream
}

// NewPassthroughHandler creates a passthrough handler.
func NewPassthroughHandler(upstream Upstream) *PassthroughHandler {
	return &PassthroughHandler{Upstream: upstream}
}

// ServeHTTP implements http.Handler.
func (h *PassthroughHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Upstream.Forward(r.Context(), r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer resp.Body.Close()

	if err := proxy.CopyResponse(w, resp); err != nil {
		slog.DebugContext(r.Context(), "client went away during relay", "error", err)
	}
}

// writeError logs err and writes the mapped JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := proxy.StatusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	if err := proxy.WriteError(w, err); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", "error", err)
	}
}

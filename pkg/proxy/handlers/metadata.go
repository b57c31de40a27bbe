package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"kurp-hq/kurp/pkg/proxy"
)

// metadataUpdate is the part of a metadata edit kurp looks at. Komga sends
// tags at the top level, Kavita nests them under seriesMetadata.
type metadataUpdate struct {
	Tags           json.RawMessage `json:"tags"`
	SeriesMetadata *struct {
		Tags json.RawMessage `json:"tags"`
	} `json:"seriesMetadata"`
}

// touchesTags reports whether the update carries a non-null tags field.
func (u *metadataUpdate) touchesTags() bool {
	if present(u.Tags) {
		return true
	}
	return u.SeriesMetadata != nil && present(u.SeriesMetadata.Tags)
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// MetadataHandler forwards metadata edits and drops every cached upscale
// decision when an edit succeeds and touches tags.
type MetadataHandler struct {
	Upstream Upstream
	Gate     Gatekeeper
}

// NewMetadataHandler creates a metadata handler.
func NewMetadataHandler(upstream Upstream, gate Gatekeeper) *MetadataHandler {
	return &MetadataHandler{Upstream: upstream, Gate: gate}
}

// ServeHTTP implements http.Handler.
func (h *MetadataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := proxy.ReadBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var update metadataUpdate
	if len(body) > 0 {
		// The upstream owns validation; a body kurp cannot parse is
		// forwarded and leaves the caches alone.
		if err := proxy.DecodeJSON(body, &update); err != nil {
			slog.DebugContext(ctx, "unparseable metadata update", "error", err)
		}
	}

	out := r.Clone(ctx)
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))

	resp, err := h.Upstream.Forward(ctx, out)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && update.touchesTags() {
		h.Gate.InvalidateAll()
		slog.InfoContext(ctx, "tags edited, upscale caches cleared", "path", r.URL.Path)
	}

	if err := proxy.CopyResponse(w, resp); err != nil {
		slog.DebugContext(ctx, "client went away during relay", "error", err)
	}
}

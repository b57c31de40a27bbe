package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"kurp-hq/kurp/pkg/backend"
	"kurp-hq/kurp/pkg/proxy"
	"kurp-hq/kurp/pkg/telemetry/logging"
	"kurp-hq/kurp/pkg/transcode"
)

// UpscaleHandler serves image pages. The page is fetched upstream first;
// only a 200 image response of a resource that passes the gate is run
// through the transcode pipeline. Everything else reaches the client as the
// upstream sent it.
type UpscaleHandler struct {
	Upstream   Upstream
	Pipeline   Transcoder
	Gate       Gatekeeper
	History    CallHistory
	ResourceID ResourceIDFunc
}

// NewUpscaleHandler creates an upscale handler for one image route.
func NewUpscaleHandler(upstream Upstream, pipeline Transcoder, gate Gatekeeper, history CallHistory, resourceID ResourceIDFunc) *UpscaleHandler {
	return &UpscaleHandler{
		Upstream:   upstream,
		Pipeline:   pipeline,
		Gate:       gate,
		History:    history,
		ResourceID: resourceID,
	}
}

// ServeHTTP implements http.Handler.
func (h *UpscaleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key := r.URL.RequestURI()
	if h.ResourceID != nil {
		if id := h.ResourceID(r); id != "" {
			r = r.WithContext(logging.WithResource(r.Context(), id))
		}
	}
	ctx := r.Context()

	out := r.Clone(ctx)
	// A client that cached the original page must not get a 304 for it
	// until it has seen the upscaled one.
	if !h.History.Contains(key) {
		proxy.StripConditionalHeaders(out.Header)
	}

	resp, err := h.Upstream.Forward(ctx, out)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer resp.Body.Close()

	// HEAD requests are routed here by the GET pattern but carry no body.
	if resp.StatusCode != http.StatusOK || r.Method != http.MethodGet {
		h.relay(w, r, resp)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !transcode.IsSupported(contentType) {
		slog.DebugContext(ctx, "not an image, passing through", "content_type", contentType)
		h.relay(w, r, resp)
		return
	}

	upscale, err := h.shouldUpscale(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !upscale {
		h.relay(w, r, resp)
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, r, &proxy.ProxyError{
			Method: r.Method,
			URL:    key,
			Err:    fmt.Errorf("failed to read image body: %w", err),
		})
		return
	}

	res, err := h.Pipeline.Transcode(ctx, body, contentType, resp.Header.Get("Content-Encoding"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.History.Record(key)

	transcode.RewriteHeaders(resp.Header, res)
	dst := w.Header()
	for k, v := range resp.Header {
		dst[k] = v
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(res.Data); err != nil {
		slog.DebugContext(ctx, "client went away during write", "error", err)
	}

	slog.InfoContext(ctx, "image served",
		"path", r.URL.Path,
		"upscaled", res.Upscaled,
		"content_type", res.ContentType,
		"in_bytes", len(body),
		"out_bytes", len(res.Data),
		"latency_ms", time.Since(start).Milliseconds(),
	)
}

// shouldUpscale consults the gate. A request without a resource id is only
// upscaled when no tag is configured.
func (h *UpscaleHandler) shouldUpscale(r *http.Request) (bool, error) {
	if h.Gate == nil || !h.Gate.Enabled() {
		return true, nil
	}
	id := ""
	if h.ResourceID != nil {
		id = h.ResourceID(r)
	}
	if id == "" {
		slog.WarnContext(r.Context(), "image request without resource id, skipping upscale", "path", r.URL.Path)
		return false, nil
	}
	return h.Gate.ShouldUpscale(r.Context(), id, backend.CredentialsFromHeader(r.Header))
}

func (h *UpscaleHandler) relay(w http.ResponseWriter, r *http.Request, resp *http.Response) {
	if err := proxy.CopyResponse(w, resp); err != nil {
		slog.DebugContext(r.Context(), "client went away during relay", "error", err)
	}
}

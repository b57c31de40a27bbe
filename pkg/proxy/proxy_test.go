package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kurp-hq/kurp/pkg/backend"
	"kurp-hq/kurp/pkg/proxy/types"
	"kurp-hq/kurp/pkg/transcode"
	"kurp-hq/kurp/pkg/upscaler"
)

func TestRemoveHopHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("connection", "keep-alive, X-Session-Hint")
	h.Set("Keep-Alive", "timeout=5")
	h.Set("proxy-authorization", "Basic abc")
	h.Set("Proxy-Authenticate", "Basic")
	h.Set("TE", "trailers")
	h.Set("Trailers", "X-Checksum")
	h.Set("Transfer-Encoding", "chunked")
	h.Set("Upgrade", "h2c")
	h.Set("X-Session-Hint", "1")
	h.Set("Authorization", "Basic dXNlcjpwYXNz")
	h.Set("Content-Type", "image/jpeg")

	RemoveHopHeaders(h)

	if len(h) != 2 {
		t.Errorf("remaining headers = %v, want only Authorization and Content-Type", h)
	}
	if h.Get("Authorization") == "" || h.Get("Content-Type") == "" {
		t.Errorf("end-to-end headers removed: %v", h)
	}
}

func TestStripConditionalHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("If-Modified-Since", "Wed, 21 Oct 2015 07:28:00 GMT")
	h.Set("If-None-Match", `"abc"`)
	h.Set("If-Match", `"abc"`)

	StripConditionalHeaders(h)

	if h.Get("If-Modified-Since") != "" || h.Get("If-None-Match") != "" {
		t.Errorf("conditional headers kept: %v", h)
	}
	if h.Get("If-Match") == "" {
		t.Error("If-Match removed")
	}
}

func TestIsWebSocketUpgrade(t *testing.T) {
	tests := []struct {
		name       string
		connection string
		upgrade    string
		want       bool
	}{
		{"upgrade", "Upgrade", "websocket", true},
		{"token list", "keep-alive, Upgrade", "WebSocket", true},
		{"plain", "keep-alive", "", false},
		{"other protocol", "Upgrade", "h2c", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/hubs/messages", nil)
			r.Header.Set("Connection", tt.connection)
			if tt.upgrade != "" {
				r.Header.Set("Upgrade", tt.upgrade)
			}
			if got := IsWebSocketUpgrade(r); got != tt.want {
				t.Errorf("IsWebSocketUpgrade() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewForwarder_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "ftp://host", "http://"} {
		if _, err := NewForwarder(raw, nil, nil); err == nil {
			t.Errorf("NewForwarder(%q) error = nil, want error", raw)
		}
	}
}

func TestForwarder_URLs(t *testing.T) {
	tests := []struct {
		base   string
		uri    string
		target string
		ws     string
	}{
		{
			base:   "http://komga:25600",
			uri:    "/api/v1/books/1/pages/2?zero_based=true",
			target: "http://komga:25600/api/v1/books/1/pages/2?zero_based=true",
			ws:     "ws://komga:25600/api/v1/books/1/pages/2?zero_based=true",
		},
		{
			base:   "https://example.com/kavita/",
			uri:    "/hubs/messages?access_token=x",
			target: "https://example.com/kavita/hubs/messages?access_token=x",
			ws:     "wss://example.com/kavita/hubs/messages?access_token=x",
		},
	}
	for _, tt := range tests {
		f, err := NewForwarder(tt.base, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got := f.Target(tt.uri); got != tt.target {
			t.Errorf("Target() = %q, want %q", got, tt.target)
		}
		if got := f.WebSocketURL(tt.uri); got != tt.ws {
			t.Errorf("WebSocketURL() = %q, want %q", got, tt.ws)
		}
	}
}

func TestForwarder_Forward(t *testing.T) {
	type seen struct {
		method, uri, body string
		header            http.Header
	}
	seenCh := make(chan seen, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seenCh <- seen{r.Method, r.URL.RequestURI(), string(b), r.Header.Clone()}
		w.Header().Set("Connection", "close")
		w.Header().Set("Keep-Alive", "timeout=5")
		w.Header().Set("ETag", `"v1"`)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))
	defer upstream.Close()

	f, err := NewForwarder(upstream.URL, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPatch, "/api/v1/series/S1/metadata?x=1", strings.NewReader(`{"tags":["a"]}`))
	r.Header.Set("Cookie", "SESSION=abc")
	r.Header.Set("Proxy-Authorization", "Basic secret")
	r.Header.Set("If-None-Match", `"v0"`)

	resp, err := f.Forward(context.Background(), r)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	defer resp.Body.Close()
	got := <-seenCh

	if got.method != http.MethodPatch || got.uri != "/api/v1/series/S1/metadata?x=1" {
		t.Errorf("upstream saw %s %s", got.method, got.uri)
	}
	if got.body != `{"tags":["a"]}` {
		t.Errorf("upstream body = %q", got.body)
	}
	if got.header.Get("Cookie") != "SESSION=abc" || got.header.Get("If-None-Match") != `"v0"` {
		t.Errorf("end-to-end request headers not forwarded: %v", got.header)
	}
	if got.header.Get("Proxy-Authorization") != "" {
		t.Error("Proxy-Authorization forwarded upstream")
	}
	if got.header.Get("User-Agent") != "" {
		t.Errorf("User-Agent = %q, want none added", got.header.Get("User-Agent"))
	}

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if resp.Header.Get("Keep-Alive") != "" {
		t.Error("Keep-Alive returned to client")
	}
	if resp.Header.Get("ETag") != `"v1"` {
		t.Error("ETag dropped")
	}
}

func TestForwarder_DoesNotFollowRedirects(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer upstream.Close()

	f, _ := NewForwarder(upstream.URL, nil, nil)
	resp, err := f.Forward(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Errorf("got %d Location=%q, want the upstream redirect", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestForwarder_TransportError(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	base := upstream.URL
	upstream.Close()

	f, _ := NewForwarder(base, nil, nil)
	_, err := f.Forward(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))

	var proxyErr *ProxyError
	if !errors.As(err, &proxyErr) {
		t.Fatalf("Forward() error = %v, want *ProxyError", err)
	}
	if StatusFor(err) != http.StatusBadGateway {
		t.Errorf("StatusFor() = %d, want 502", StatusFor(err))
	}
}

func TestForwarder_ResponseHeaderTimeout(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer upstream.Close()
	defer close(release)

	transport := NewTransport(TransportConfig{ResponseHeaderTimeout: 20 * time.Millisecond})
	f, _ := NewForwarder(upstream.URL, transport, nil)

	_, err := f.Forward(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	var proxyErr *ProxyError
	if !errors.As(err, &proxyErr) || !proxyErr.Timeout() {
		t.Fatalf("Forward() error = %v, want a timed out *ProxyError", err)
	}
	if code := HandleError(err).Error.Code; code != types.CodeUpstreamTimeout {
		t.Errorf("code = %q, want %q", code, types.CodeUpstreamTimeout)
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"request", &RequestError{Message: "bad", Code: types.CodeInvalidJSON}, http.StatusBadRequest, types.CodeInvalidJSON},
		{"transport", &ProxyError{Method: "GET", URL: "http://x", Err: errors.New("refused")}, http.StatusBadGateway, types.CodeUpstreamError},
		{"decode", &transcode.DecodeError{Stage: transcode.StageDecode, Err: errors.New("bad jpeg")}, http.StatusBadGateway, types.CodeTranscodeFailed},
		{"encoding", &transcode.UnsupportedEncodingError{Encoding: "zstd"}, http.StatusBadGateway, types.CodeTranscodeFailed},
		{"format", &transcode.UnsupportedFormatError{ContentType: "image/avif"}, http.StatusBadGateway, types.CodeTranscodeFailed},
		{"not initialized", upscaler.ErrNotInitialized, http.StatusBadGateway, types.CodeWorkerUnavailable},
		{"fault", fmt.Errorf("transcode: %w", &upscaler.WorkerFaultError{Engine: "waifu2x", Err: errors.New("exit 1")}), http.StatusBadGateway, types.CodeWorkerUnavailable},
		{"auth", &backend.AuthError{Backend: "komga", Message: "no credentials"}, http.StatusBadGateway, types.CodeMissingCredential},
		{"backend", &backend.HTTPError{Backend: "kavita", Status: 500, URL: "http://x"}, http.StatusBadGateway, types.CodeUpstreamError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, types.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := HandleError(tt.err)
			if got := resp.Error.HTTPStatusCode(); got != tt.wantStatus {
				t.Errorf("status = %d, want %d", got, tt.wantStatus)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, &backend.AuthError{Backend: "kavita", Message: "request carries no bearer token"})

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body types.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body.Error.Message, "bearer token") {
		t.Errorf("message = %q", body.Error.Message)
	}
}

func TestCopyResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode:    http.StatusNotModified,
		Header:        http.Header{"Etag": {`"v1"`}, "Cache-Control": {"private"}},
		Body:          io.NopCloser(strings.NewReader("")),
		ContentLength: 0,
	}
	rec := httptest.NewRecorder()

	if err := CopyResponse(rec, resp); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", rec.Code)
	}
	if rec.Header().Get("ETag") != `"v1"` || rec.Header().Get("Cache-Control") != "private" {
		t.Errorf("headers = %v", rec.Header())
	}
}

func TestCopyResponse_StreamsUnknownLength(t *testing.T) {
	resp := &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{"Content-Type": {"text/event-stream"}},
		Body:          io.NopCloser(strings.NewReader("data: 1\n\n")),
		ContentLength: -1,
	}
	rec := httptest.NewRecorder()

	if err := CopyResponse(rec, resp); err != nil {
		t.Fatal(err)
	}
	if !rec.Flushed {
		t.Error("response of unknown length was not flushed")
	}
	if rec.Body.String() != "data: 1\n\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestReadBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/kurp/config", strings.NewReader(strings.Repeat("x", MaxRequestBodySize+1)))
	_, err := ReadBody(r)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("ReadBody() error = %v, want *RequestError", err)
	}

	var v map[string]any
	if err := DecodeJSON([]byte("{"), &v); StatusFor(err) != http.StatusBadRequest {
		t.Errorf("DecodeJSON() status = %d, want 400", StatusFor(err))
	}
}

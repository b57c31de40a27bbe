package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kurp-hq/kurp/pkg/proxy/types"
	"kurp-hq/kurp/pkg/telemetry/metrics"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type handshake struct {
	query  string
	cookie string
}

// echoUpstream answers every data frame with "echo:" + payload.
func echoUpstream(t *testing.T) (*httptest.Server, <-chan handshake) {
	t.Helper()
	seen := make(chan handshake, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- handshake{query: r.URL.RawQuery, cookie: r.Header.Get("Cookie")}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			kind, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			if err := c.WriteMessage(kind, append([]byte("echo:"), data...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func newBridge(t *testing.T, upstreamURL string, reg *prometheus.Registry) (*WebSocketHandler, *httptest.Server) {
	t.Helper()
	var collector *metrics.Collector
	if reg != nil {
		collector = metrics.NewCollector(reg)
	}
	fallback := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fallback"))
	})
	h := NewWebSocketHandler(newForwarder(t, upstreamURL), fallback, collector)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return h, srv
}

func wsURL(srv *httptest.Server, uri string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + uri
}

func TestWebSocketHandler_Relays(t *testing.T) {
	upstream, seen := echoUpstream(t)
	reg := prometheus.NewRegistry()
	h, srv := newBridge(t, upstream.URL, reg)

	header := http.Header{}
	header.Set("Cookie", "session=abc")
	client, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/hubs/messages?access_token=tok"), header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("status = %d, want 101", resp.StatusCode)
	}

	hs := <-seen
	if hs.query != "access_token=tok" {
		t.Errorf("upstream query = %q, want access_token=tok", hs.query)
	}
	if hs.cookie != "session=abc" {
		t.Errorf("upstream cookie = %q, want session=abc", hs.cookie)
	}

	for _, msg := range []string{"one", "two"} {
		if err := client.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
		kind, data, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		if kind != websocket.TextMessage || string(data) != "echo:"+msg {
			t.Errorf("got (%d, %q), want text %q", kind, data, "echo:"+msg)
		}
	}

	const open = `
# HELP kurp_websocket_sessions Number of bridged WebSocket sessions currently open
# TYPE kurp_websocket_sessions gauge
kurp_websocket_sessions 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(open), "kurp_websocket_sessions"); err != nil {
		t.Error(err)
	}

	err = client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	if err != nil {
		t.Fatalf("close error = %v", err)
	}
	// Shutdown waits for the bridge to return.
	h.Shutdown()

	const closed = `
# HELP kurp_websocket_sessions Number of bridged WebSocket sessions currently open
# TYPE kurp_websocket_sessions gauge
kurp_websocket_sessions 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(closed), "kurp_websocket_sessions"); err != nil {
		t.Error(err)
	}
}

func TestWebSocketHandler_ShutdownClosesSessions(t *testing.T) {
	upstream, _ := echoUpstream(t)
	h, srv := newBridge(t, upstream.URL, nil)

	client, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/hubs/messages"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	done := make(chan struct{})
	go func() {
		h.Shutdown()
		close(done)
	}()

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = client.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.CloseGoingAway {
		t.Errorf("ReadMessage() error = %v, want close 1001", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown() did not return")
	}

	// New sessions are refused once shut down.
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/hubs/messages"), nil)
	if err == nil {
		t.Fatal("Dial() after Shutdown succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response after Shutdown = %v, want 503", resp)
	}
}

func TestWebSocketHandler_NotAnUpgrade(t *testing.T) {
	_, srv := newBridge(t, "http://127.0.0.1:1", nil)

	resp, err := http.Get(srv.URL + "/hubs/messages")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	if string(buf[:n]) != "fallback" {
		t.Errorf("body = %q, want fallback", buf[:n])
	}
}

func TestWebSocketHandler_DialFailure(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(upstream.Close)

	h := NewWebSocketHandler(newForwarder(t, upstream.URL), http.NotFoundHandler(), nil)

	req := httptest.NewRequest(http.MethodGet, "/hubs/messages", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != types.CodeUpstreamError {
		t.Errorf("code = %q, want %q", got, types.CodeUpstreamError)
	}
}

func TestDialHeader(t *testing.T) {
	in := http.Header{}
	in.Set("Connection", "Upgrade")
	in.Set("Upgrade", "websocket")
	in.Set("Sec-WebSocket-Key", "k")
	in.Set("Sec-WebSocket-Version", "13")
	in.Set("Sec-WebSocket-Extensions", "permessage-deflate")
	in.Set("Sec-WebSocket-Protocol", "json")
	in.Set("Authorization", "Bearer tok")
	in.Set("Origin", "https://reader.example")

	out := dialHeader(in)

	for _, gone := range []string{"Connection", "Upgrade", "Sec-WebSocket-Key", "Sec-WebSocket-Version", "Sec-WebSocket-Extensions"} {
		if out.Get(gone) != "" {
			t.Errorf("%s copied to dial header", gone)
		}
	}
	for _, kept := range []string{"Sec-WebSocket-Protocol", "Authorization", "Origin"} {
		if out.Get(kept) != in.Get(kept) {
			t.Errorf("%s = %q, want %q", kept, out.Get(kept), in.Get(kept))
		}
	}
	if in.Get("Upgrade") == "" {
		t.Error("dialHeader modified its input")
	}
}

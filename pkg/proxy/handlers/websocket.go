package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"kurp-hq/kurp/pkg/proxy"
	"kurp-hq/kurp/pkg/telemetry/metrics"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// closeGrace bounds the write of a close frame to a peer.
const closeGrace = time.Second

// handshakeHeaders are generated by the dialer itself and must not be copied
// from the client handshake.
var handshakeHeaders = []string{
	"Sec-Websocket-Key",
	"Sec-Websocket-Version",
	"Sec-Websocket-Extensions",
}

// WebSocketHandler bridges a client WebSocket to the same path on the
// upstream server. Requests that are not upgrades go to Fallback.
//
// The upstream is dialed before the client handshake completes, so a
// client only ever sees a 101 when both ends are connected. Data frames are
// relayed in both directions; ping and pong frames are answered locally and
// never crossed over. The first side to close ends the session.
type WebSocketHandler struct {
	Upstream Upstream
	Fallback http.Handler

	dialer   *websocket.Dialer
	upgrader websocket.Upgrader
	metrics  *metrics.Collector

	mu       sync.Mutex
	closed   bool
	done     chan struct{}
	sessions sync.WaitGroup
}

// NewWebSocketHandler creates a bridge. collector may be nil.
func NewWebSocketHandler(upstream Upstream, fallback http.Handler, collector *metrics.Collector) *WebSocketHandler {
	return &WebSocketHandler{
		Upstream: upstream,
		Fallback: fallback,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		upgrader: websocket.Upgrader{
			// The upstream checks the forwarded Origin itself.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		metrics: collector,
		done:    make(chan struct{}),
	}
}

// ServeHTTP implements http.Handler.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !proxy.IsWebSocketUpgrade(r) {
		h.Fallback.ServeHTTP(w, r)
		return
	}

	ctx := r.Context()
	if !h.track() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.sessions.Done()

	target := h.Upstream.WebSocketURL(r.URL.RequestURI())

	upstream, resp, err := h.dialer.DialContext(ctx, target, dialHeader(r.Header))
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		writeError(w, r, &proxy.ProxyError{Method: r.Method, URL: target, Err: err})
		return
	}

	respHeader := http.Header{}
	if p := upstream.Subprotocol(); p != "" {
		respHeader.Set("Sec-Websocket-Protocol", p)
	}
	for _, c := range resp.Header.Values("Set-Cookie") {
		respHeader.Add("Set-Cookie", c)
	}

	client, err := h.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		// Upgrade has already answered the client.
		upstream.Close()
		slog.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}

	h.metrics.SessionOpened()
	defer h.metrics.SessionClosed()

	start := time.Now()
	err = h.bridge(ctx, client, upstream)

	level := slog.LevelDebug
	if !isExpectedClose(err) {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "websocket session ended",
		"path", r.URL.Path,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err,
	)
}

// Shutdown closes every open session and waits for the bridges to return.
// net/http does not track hijacked connections, so the server calls this
// when it shuts down.
func (h *WebSocketHandler) Shutdown() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
	h.mu.Unlock()
	h.sessions.Wait()
}

// track registers a session unless Shutdown has been called.
func (h *WebSocketHandler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions.Add(1)
	return true
}

// bridge relays frames until either side closes or the handler shuts down.
func (h *WebSocketHandler) bridge(ctx context.Context, client, upstream *websocket.Conn) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return relay(upstream, client) })
	g.Go(func() error { return relay(client, upstream) })
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-h.done:
			deadline := time.Now().Add(closeGrace)
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "proxy restarting")
			_ = client.WriteControl(websocket.CloseMessage, msg, deadline)
			_ = upstream.WriteControl(websocket.CloseMessage, msg, deadline)
		}
		// Unblocks the reader that is still waiting.
		client.Close()
		upstream.Close()
		return nil
	})

	return g.Wait()
}

// relay copies data frames from src to dst. A close frame from src is
// passed on to dst. relay always returns a non-nil error so that the group
// context is cancelled when either direction ends.
func relay(dst, src *websocket.Conn) error {
	for {
		kind, data, err := src.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				code := ce.Code
				if code == websocket.CloseNoStatusReceived || code == websocket.CloseAbnormalClosure {
					code = websocket.CloseNormalClosure
				}
				_ = dst.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(code, ce.Text),
					time.Now().Add(closeGrace))
			}
			return err
		}
		if err := dst.WriteMessage(kind, data); err != nil {
			return err
		}
	}
}

// dialHeader copies the client handshake headers that the upstream should
// see: credentials, cookies, origin and subprotocols.
func dialHeader(in http.Header) http.Header {
	out := in.Clone()
	proxy.RemoveHopHeaders(out)
	for _, name := range handshakeHeaders {
		out.Del(name)
	}
	return out
}

func isExpectedClose(err error) bool {
	return err == nil ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
		errors.Is(err, net.ErrClosed)
}

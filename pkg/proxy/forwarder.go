package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TransportConfig tunes the connection pool to the upstream server.
type TransportConfig struct {
	// ResponseHeaderTimeout bounds the wait for upstream response headers.
	// Bodies are streamed and not bounded.
	ResponseHeaderTimeout time.Duration

	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// NewTransport returns the transport shared by the forwarder and the
// backend metadata clients. Compression is left to the endpoints so that
// encoded bodies pass through untouched.
func NewTransport(cfg TransportConfig) *http.Transport {
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 32
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
	}
}

// Forwarder relays requests to the upstream server. The upstream sees the
// client's method, path, query, headers and body; redirects come back to
// the client verbatim.
type Forwarder struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

// NewForwarder creates a forwarder for the upstream base URL. A nil
// transport selects http.DefaultTransport.
func NewForwarder(baseURL string, transport http.RoundTripper, logger *slog.Logger) (*Forwarder, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream url %q: scheme must be http or https", baseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q: missing host", baseURL)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Forwarder{
		base: base,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger.With("component", "proxy"),
	}, nil
}

// Target returns the upstream URL for a request URI (path and raw query).
func (f *Forwarder) Target(requestURI string) string {
	return strings.TrimRight(f.base.String(), "/") + requestURI
}

// WebSocketURL returns the ws:// or wss:// upstream URL for a request URI.
func (f *Forwarder) WebSocketURL(requestURI string) string {
	u := *f.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return strings.TrimRight(u.String(), "/") + requestURI
}

// Forward sends r upstream and returns the response with hop-by-hop
// headers removed. The caller must close the response body. A transport
// failure is returned as a *ProxyError.
func (f *Forwarder) Forward(ctx context.Context, r *http.Request) (*http.Response, error) {
	target := f.Target(r.URL.RequestURI())

	var body io.Reader
	if r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0 {
		body = r.Body
	}
	out, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, &ProxyError{Method: r.Method, URL: target, Err: err}
	}
	if body != nil {
		out.ContentLength = r.ContentLength
	}

	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	RemoveHopHeaders(out.Header)

	// An empty User-Agent stops net/http from adding its own.
	if _, ok := out.Header["User-Agent"]; !ok {
		out.Header.Set("User-Agent", "")
	}

	start := time.Now()
	resp, err := f.client.Do(out)
	if err != nil {
		f.logger.WarnContext(ctx, "upstream request failed",
			"method", r.Method,
			"url", target,
			"error", err,
		)
		return nil, &ProxyError{Method: r.Method, URL: target, Err: err}
	}

	RemoveHopHeaders(resp.Header)
	f.logger.DebugContext(ctx, "upstream response",
		"method", r.Method,
		"url", target,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kurp-hq/kurp/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 512

// NewHTTPClient returns a client for metadata calls. Redirects are returned
// to the caller rather than followed.
func NewHTTPClient(transport http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// client is the shared JSON GET plumbing of the Komga and Kavita clients.
type client struct {
	backend string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	tracer  *tracing.Tracer
}

func newClient(backend, baseURL string, httpClient *http.Client, logger *slog.Logger, tracer *tracing.Tracer) client {
	if httpClient == nil {
		httpClient = NewHTTPClient(nil, 30*time.Second)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return client{
		backend: backend,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With("component", "backend."+backend),
		tracer:  tracer,
	}
}

// getJSON performs an authenticated GET of path and decodes the body into out.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, auth http.Header, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	ctx, span := c.tracer.Start(ctx, "backend.get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrBackend, c.backend),
			attribute.String("url.full", target),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &HTTPError{Backend: c.backend, URL: target, Cause: err}
	}
	for key, values := range auth {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	tracing.Inject(ctx, req.Header)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		tracing.SetError(span, err)
		return &HTTPError{Backend: c.backend, URL: target, Cause: err}
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "backend request",
		"method", http.MethodGet,
		"url", target,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		err := &AuthError{Backend: c.backend, Message: fmt.Sprintf("%s returned %d", target, resp.StatusCode)}
		tracing.SetError(span, err)
		return err
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var cause error
		if msg := strings.TrimSpace(string(body)); msg != "" {
			cause = errors.New(msg)
		}
		err := &HTTPError{Backend: c.backend, Status: resp.StatusCode, URL: target, Cause: cause}
		tracing.SetError(span, err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		err := &HTTPError{
			Backend: c.backend,
			Status:  resp.StatusCode,
			URL:     target,
			Cause:   fmt.Errorf("failed to decode response: %w", err),
		}
		tracing.SetError(span, err)
		return err
	}
	return nil
}

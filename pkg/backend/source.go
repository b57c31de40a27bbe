package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"kurp-hq/kurp/pkg/config"
	"kurp-hq/kurp/pkg/telemetry/tracing"
)

// TagSource resolves the tags that apply to an image resource: a Komga
// book id or a Kavita chapter id.
type TagSource interface {
	Name() string
	Tags(ctx context.Context, resourceID string, creds Credentials) ([]string, error)
}

// New returns the TagSource for the configured backend flavor.
func New(backend, baseURL string, httpClient *http.Client, logger *slog.Logger, tracer *tracing.Tracer) (TagSource, error) {
	switch backend {
	case config.BackendKomga:
		return NewKomga(baseURL, httpClient, logger, tracer), nil
	case config.BackendKavita:
		return NewKavita(baseURL, httpClient, logger, tracer), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

package backend

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"kurp-hq/kurp/pkg/config"
	"kurp-hq/kurp/pkg/telemetry/tracing"
)

// Komga reads book and series tags from a Komga server.
type Komga struct {
	client
}

// NewKomga creates a Komga metadata client rooted at baseURL.
func NewKomga(baseURL string, httpClient *http.Client, logger *slog.Logger, tracer *tracing.Tracer) *Komga {
	return &Komga{client: newClient(config.BackendKomga, baseURL, httpClient, logger, tracer)}
}

// Name returns the backend flavor.
func (k *Komga) Name() string { return config.BackendKomga }

// Tags returns the tags of the book and of the series it belongs to.
func (k *Komga) Tags(ctx context.Context, bookID string, creds Credentials) ([]string, error) {
	auth, err := k.authHeader(creds)
	if err != nil {
		return nil, err
	}

	var book komgaBook
	if err := k.getJSON(ctx, "/api/v1/books/"+url.PathEscape(bookID), nil, auth, &book); err != nil {
		return nil, err
	}

	var series komgaSeries
	if err := k.getJSON(ctx, "/api/v1/series/"+url.PathEscape(book.SeriesID), nil, auth, &series); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(book.Metadata.Tags)+len(series.Metadata.Tags))
	tags = append(tags, book.Metadata.Tags...)
	tags = append(tags, series.Metadata.Tags...)
	return tags, nil
}

// authHeader prefers the Authorization header, then the session cookie,
// then an API key.
func (k *Komga) authHeader(creds Credentials) (http.Header, error) {
	h := http.Header{}
	switch {
	case creds.Authorization != "":
		h.Set("Authorization", creds.Authorization)
	case creds.Cookie != "":
		h.Set("Cookie", creds.Cookie)
	case creds.APIKey != "":
		h.Set("X-API-Key", creds.APIKey)
	default:
		return nil, &AuthError{Backend: config.BackendKomga, Message: "request carries no credentials"}
	}
	return h, nil
}

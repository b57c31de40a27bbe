package backend

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"kurp-hq/kurp/pkg/config"
	"kurp-hq/kurp/pkg/telemetry/tracing"
)

// Kavita reads series tags from a Kavita server. Tags live on the series,
// so a chapter is resolved through its volume first.
type Kavita struct {
	client
}

// NewKavita creates a Kavita metadata client rooted at baseURL.
func NewKavita(baseURL string, httpClient *http.Client, logger *slog.Logger, tracer *tracing.Tracer) *Kavita {
	return &Kavita{client: newClient(config.BackendKavita, baseURL, httpClient, logger, tracer)}
}

// Name returns the backend flavor.
func (k *Kavita) Name() string { return config.BackendKavita }

// Tags returns the tag titles of the series the chapter belongs to.
func (k *Kavita) Tags(ctx context.Context, chapterID string, creds Credentials) ([]string, error) {
	if !creds.bearer() {
		return nil, &AuthError{Backend: config.BackendKavita, Message: "request carries no bearer token"}
	}
	auth := http.Header{}
	auth.Set("Authorization", creds.Authorization)

	var chapter kavitaChapter
	if err := k.getJSON(ctx, "/api/series/chapter", url.Values{"chapterId": {chapterID}}, auth, &chapter); err != nil {
		return nil, err
	}

	var volume kavitaVolume
	if err := k.getJSON(ctx, "/api/series/volume", url.Values{"volumeId": {strconv.Itoa(chapter.VolumeID)}}, auth, &volume); err != nil {
		return nil, err
	}

	var meta kavitaSeriesMetadata
	if err := k.getJSON(ctx, "/api/series/metadata", url.Values{"seriesId": {strconv.Itoa(volume.SeriesID)}}, auth, &meta); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(meta.Tags))
	for _, t := range meta.Tags {
		tags = append(tags, t.Title)
	}
	return tags, nil
}

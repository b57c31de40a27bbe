package handlers

import (
	"context"
	"net/http"

	"kurp-hq/kurp/pkg/backend"
	"kurp-hq/kurp/pkg/transcode"
)

// Upstream relays requests to the Komga or Kavita server.
// *proxy.Forwarder is the production implementation.
type Upstream interface {
	Forward(ctx context.Context, r *http.Request) (*http.Response, error)
	WebSocketURL(requestURI string) string
}

// Transcoder rewrites an image response body.
type Transcoder interface {
	Transcode(ctx context.Context, body []byte, contentType, contentEncoding string) (*transcode.Result, error)
}

// Gatekeeper decides per resource whether upscaling runs.
type Gatekeeper interface {
	Enabled() bool
	ShouldUpscale(ctx context.Context, resourceID string, creds backend.Credentials) (bool, error)
	InvalidateAll()
}

// CallHistory remembers which request URIs were served upscaled.
type CallHistory interface {
	Contains(key string) bool
	Record(key string)
}

// ResourceIDFunc extracts the backend resource (book or chapter) an image
// request belongs to. An empty result means the request cannot be gated.
type ResourceIDFunc func(r *http.Request) string

// KomgaBookID reads the book id from the Komga page route.
func KomgaBookID(r *http.Request) string {
	return r.PathValue("bookId")
}

// KavitaChapterID reads the chapter id from the Kavita image route.
func KavitaChapterID(r *http.Request) string {
	return r.URL.Query().Get("chapterId")
}

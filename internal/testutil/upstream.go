package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Upstream is a fake Komga or Kavita server. Responses are registered per
// request URI (path and query) or per path, and every request is recorded.
type Upstream struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string]Response
	requests  []RecordedRequest
}

// Response is a canned upstream response.
type Response struct {
	StatusCode int

	// Body is written as is when it is a string or []byte and encoded as
	// JSON otherwise.
	Body    any
	Headers map[string]string
	Delay   time.Duration
}

// RecordedRequest is a request as the upstream received it.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// NewUpstream starts a fake upstream. It is closed when the test ends.
func NewUpstream(t interface{ Cleanup(func()) }) *Upstream {
	u := &Upstream{responses: make(map[string]Response)}
	u.server = httptest.NewServer(http.HandlerFunc(u.handler))
	t.Cleanup(u.server.Close)
	return u
}

// URL returns the base URL of the upstream.
func (u *Upstream) URL() string {
	return u.server.URL
}

// SetResponse registers resp for a request URI ("/api/series/chapter?chapterId=1")
// or a bare path.
func (u *Upstream) SetResponse(uri string, resp Response) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.responses[uri] = resp
}

// Requests returns a copy of the recorded requests.
func (u *Upstream) Requests() []RecordedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]RecordedRequest(nil), u.requests...)
}

// RequestCount returns how many requests hit path.
func (u *Upstream) RequestCount(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, r := range u.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent request to path.
func (u *Upstream) LastRequest(path string) (RecordedRequest, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := len(u.requests) - 1; i >= 0; i-- {
		if u.requests[i].Path == path {
			return u.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

func (u *Upstream) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	u.mu.Lock()
	u.requests = append(u.requests, RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	})
	resp, ok := u.responses[r.URL.RequestURI()]
	if !ok {
		resp, ok = u.responses[r.URL.Path]
	}
	u.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	var data []byte
	switch v := resp.Body.(type) {
	case nil:
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		data, _ = json.Marshal(v)
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
	}
	if data != nil && w.Header().Get("Content-Length") == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// SetKomgaBook registers GET /api/v1/books/{id} and the owning series.
func (u *Upstream) SetKomgaBook(bookID, seriesID string, bookTags, seriesTags []string) {
	u.SetResponse("/api/v1/books/"+bookID, Response{Body: map[string]any{
		"id":       bookID,
		"seriesId": seriesID,
		"metadata": map[string]any{"tags": nonNil(bookTags)},
	}})
	u.SetResponse("/api/v1/series/"+seriesID, Response{Body: map[string]any{
		"id":       seriesID,
		"metadata": map[string]any{"tags": nonNil(seriesTags)},
	}})
}

// SetKavitaChapter registers the chapter, volume and series metadata
// lookups for one chapter.
func (u *Upstream) SetKavitaChapter(chapterID, volumeID, seriesID int, tags []string) {
	u.SetResponse(fmt.Sprintf("/api/series/chapter?chapterId=%d", chapterID), Response{Body: map[string]any{
		"id":       chapterID,
		"volumeId": volumeID,
	}})
	u.SetResponse(fmt.Sprintf("/api/series/volume?volumeId=%d", volumeID), Response{Body: map[string]any{
		"id":       volumeID,
		"seriesId": seriesID,
	}})
	kt := make([]map[string]any, 0, len(tags))
	for i, tag := range tags {
		kt = append(kt, map[string]any{"id": i + 1, "title": tag})
	}
	u.SetResponse(fmt.Sprintf("/api/series/metadata?seriesId=%d", seriesID), Response{Body: map[string]any{
		"seriesId": seriesID,
		"tags":     kt,
	}})
}

// SetImage registers an image page.
func (u *Upstream) SetImage(uri, contentType string, data []byte, headers map[string]string) {
	h := map[string]string{"Content-Type": contentType}
	for k, v := range headers {
		h[k] = v
	}
	u.SetResponse(uri, Response{Body: data, Headers: h})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Gradient returns a w×h test image with a colour gradient.
func Gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(w, 1)), G: uint8(y * 255 / max(h, 1)), B: 128, A: 255})
		}
	}
	return img
}

// JPEG encodes a w×h gradient as JPEG.
func JPEG(w, h int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PNG encodes a w×h gradient as PNG.
func PNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Gradient(w, h)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

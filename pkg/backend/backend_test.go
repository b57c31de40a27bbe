package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
)

func komgaServer(t *testing.T, seen *http.Header) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = r.Header.Clone()
		}
		if r.PathValue("id") != "B1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"B1","seriesId":"S1","metadata":{"tags":["Shonen"],"title":"ignored"}}`))
	})
	mux.HandleFunc("GET /api/v1/series/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"S1","metadata":{"tags":["Upscale","colour"]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestKomga_Tags(t *testing.T) {
	var seen http.Header
	srv := komgaServer(t, &seen)
	k := NewKomga(srv.URL+"/", srv.Client(), nil, nil)

	tags, err := k.Tags(context.Background(), "B1", Credentials{Cookie: "SESSION=abc"})
	if err != nil {
		t.Fatalf("Tags() error = %v", err)
	}

	want := []string{"Shonen", "Upscale", "colour"}
	if !slices.Equal(tags, want) {
		t.Errorf("Tags() = %v, want %v", tags, want)
	}
	if got := seen.Get("Cookie"); got != "SESSION=abc" {
		t.Errorf("Cookie = %q, want SESSION=abc", got)
	}
}

func TestKomga_CredentialPreference(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		header  string
		want    string
		wantErr bool
	}{
		{
			name:   "authorization wins",
			creds:  Credentials{Authorization: "Basic dXNlcjpwYXNz", Cookie: "SESSION=abc"},
			header: "Authorization",
			want:   "Basic dXNlcjpwYXNz",
		},
		{
			name:   "cookie fallback",
			creds:  Credentials{Cookie: "SESSION=abc", APIKey: "key"},
			header: "Cookie",
			want:   "SESSION=abc",
		},
		{
			name:   "api key",
			creds:  Credentials{APIKey: "key"},
			header: "X-API-Key",
			want:   "key",
		},
		{
			name:    "none",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen http.Header
			srv := komgaServer(t, &seen)
			k := NewKomga(srv.URL, srv.Client(), nil, nil)

			_, err := k.Tags(context.Background(), "B1", tt.creds)
			if tt.wantErr {
				var authErr *AuthError
				if !errors.As(err, &authErr) {
					t.Fatalf("Tags() error = %v, want *AuthError", err)
				}
				if seen != nil {
					t.Error("backend was called without credentials")
				}
				return
			}
			if err != nil {
				t.Fatalf("Tags() error = %v", err)
			}
			if got := seen.Get(tt.header); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestKomga_HTTPError(t *testing.T) {
	srv := komgaServer(t, nil)
	k := NewKomga(srv.URL, srv.Client(), nil, nil)

	_, err := k.Tags(context.Background(), "missing", Credentials{Cookie: "SESSION=abc"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Tags() error = %v, want *HTTPError", err)
	}
	if httpErr.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", httpErr.Status)
	}
	if httpErr.URL != srv.URL+"/api/v1/books/missing" {
		t.Errorf("URL = %q", httpErr.URL)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "rejected credentials",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			check: func(t *testing.T, err error) {
				var authErr *AuthError
				if !errors.As(err, &authErr) {
					t.Errorf("error = %v, want *AuthError", err)
				}
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"id":`))
			},
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				if !errors.As(err, &httpErr) || httpErr.Status != http.StatusOK {
					t.Errorf("error = %v, want *HTTPError with status 200", err)
				}
			},
		},
		{
			name: "redirect is not followed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/login", http.StatusFound)
			},
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				if !errors.As(err, &httpErr) || httpErr.Status != http.StatusFound {
					t.Errorf("error = %v, want *HTTPError with status 302", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			k := NewKomga(srv.URL, NewHTTPClient(nil, 0), nil, nil)
			_, err := k.Tags(context.Background(), "B1", Credentials{Cookie: "SESSION=abc"})
			tt.check(t, err)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	k := NewKomga(url, nil, nil, nil)
	_, err := k.Tags(context.Background(), "B1", Credentials{Cookie: "SESSION=abc"})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *HTTPError", err)
	}
	if httpErr.Status != 0 || httpErr.Cause == nil {
		t.Errorf("HTTPError = %+v, want status 0 with a cause", httpErr)
	}
}

func kavitaServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	handle := func(pattern, param, value, body string) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.Header.Get("Authorization") != "Bearer jwt" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.URL.Query().Get(param) != value {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(body))
		})
	}
	handle("GET /api/series/chapter", "chapterId", "42", `{"id":42,"volumeId":7}`)
	handle("GET /api/series/volume", "volumeId", "7", `{"id":7,"seriesId":3}`)
	handle("GET /api/series/metadata", "seriesId", "3", `{"tags":[{"id":1,"title":"Upscale"},{"id":2,"title":"Action"}]}`)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestKavita_Tags(t *testing.T) {
	var calls atomic.Int32
	srv := kavitaServer(t, &calls)
	k := NewKavita(srv.URL, srv.Client(), nil, nil)

	tags, err := k.Tags(context.Background(), "42", Credentials{Authorization: "Bearer jwt"})
	if err != nil {
		t.Fatalf("Tags() error = %v", err)
	}
	if want := []string{"Upscale", "Action"}; !slices.Equal(tags, want) {
		t.Errorf("Tags() = %v, want %v", tags, want)
	}
	if calls.Load() != 3 {
		t.Errorf("backend calls = %d, want 3", calls.Load())
	}
}

func TestKavita_RequiresBearer(t *testing.T) {
	var calls atomic.Int32
	srv := kavitaServer(t, &calls)
	k := NewKavita(srv.URL, srv.Client(), nil, nil)

	for _, creds := range []Credentials{
		{},
		{Cookie: "session"},
		{Authorization: "Basic dXNlcjpwYXNz"},
		{Authorization: "Bearer "},
	} {
		_, err := k.Tags(context.Background(), "42", creds)
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Errorf("Tags(%+v) error = %v, want *AuthError", creds, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("backend calls = %d, want 0", calls.Load())
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{backend: "komga", want: "komga"},
		{backend: "kavita", want: "kavita"},
		{backend: "calibre", wantErr: true},
	}
	for _, tt := range tests {
		src, err := New(tt.backend, "http://localhost:8080", nil, nil, nil)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
			continue
		}
		if err == nil && src.Name() != tt.want {
			t.Errorf("New(%q).Name() = %q, want %q", tt.backend, src.Name(), tt.want)
		}
	}
}

func TestCredentialsFromHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer jwt")
	h.Set("Cookie", "SESSION=abc")
	h.Set("X-Api-Key", "key")

	got := CredentialsFromHeader(h)
	want := Credentials{Authorization: "Bearer jwt", Cookie: "SESSION=abc", APIKey: "key"}
	if got != want {
		t.Errorf("CredentialsFromHeader() = %+v, want %+v", got, want)
	}
}

func TestCredentials_Fingerprint(t *testing.T) {
	base := Credentials{Authorization: "Basic a", Cookie: "SESSION=1"}

	tests := []struct {
		name  string
		other Credentials
		same  bool
	}{
		{"identical", Credentials{Authorization: "Basic a", Cookie: "SESSION=1"}, true},
		{"different authorization", Credentials{Authorization: "Basic b", Cookie: "SESSION=1"}, false},
		{"different cookie", Credentials{Authorization: "Basic a", Cookie: "SESSION=2"}, false},
		{"api key added", Credentials{Authorization: "Basic a", Cookie: "SESSION=1", APIKey: "k"}, false},
		{"fields shifted", Credentials{Authorization: "Basic a\x00SESSION=1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Fingerprint() == tt.other.Fingerprint(); got != tt.same {
				t.Errorf("fingerprints equal = %v, want %v", got, tt.same)
			}
		})
	}
	if strings.Contains(base.Fingerprint(), "Basic") {
		t.Error("fingerprint leaks the credential")
	}
}

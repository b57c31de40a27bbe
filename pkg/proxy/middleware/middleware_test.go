package middleware

import (
	"bufio"
	"bytes"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kurp-hq/kurp/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/books/{bookId}/pages/{page}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("page"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	return mux
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.NotFoundHandler(), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("order = %v, want [outer inner]", order)
	}
}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	h := Chain(CaptureRoute(testMux()),
		RequestIDMiddleware,
		MetricsMiddleware(collector),
	)

	for _, path := range []string{"/api/v1/books/A/pages/1", "/api/v1/books/B/pages/2", "/elsewhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	const want = `
# HELP kurp_requests_total Total number of HTTP requests handled
# TYPE kurp_requests_total counter
kurp_requests_total{route="/",status="502"} 1
kurp_requests_total{route="GET /api/v1/books/{bookId}/pages/{page}",status="200"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "kurp_requests_total"); err != nil {
		t.Error(err)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	h := Chain(CaptureRoute(testMux()), RequestIDMiddleware, LoggingMiddleware)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/A/pages/1", nil)
	req.Header.Set("X-Request-ID", "req-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{
		`"msg":"request completed"`,
		`"route":"GET /api/v1/books/{bookId}/pages/{page}"`,
		`"status":200`,
		`"bytes":4`,
		`"request_id":"req-123"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	h := Chain(CaptureRoute(testMux()), LoggingMiddleware)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/elsewhere", nil))

	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("502 not logged at error level: %s", buf.String())
	}
}

func TestGetStartTime(t *testing.T) {
	var got time.Time
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetStartTime(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got.IsZero() {
		t.Error("GetStartTime() is zero inside the chain")
	}
	if !GetStartTime(httptest.NewRequest(http.MethodGet, "/", nil).Context()).IsZero() {
		t.Error("GetStartTime() without middleware is not zero")
	}
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	c1, c2 := net.Pipe()
	c2.Close()
	return c1, bufio.NewReadWriter(bufio.NewReader(c1), bufio.NewWriter(c1)), nil
}

func TestResponseWriter_SupportsUpgradeAndFlush(t *testing.T) {
	under := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw := newResponseWriter(under)

	var w http.ResponseWriter = rw
	if _, ok := w.(http.Flusher); !ok {
		t.Fatal("wrapper does not implement http.Flusher")
	}
	hj, ok := w.(http.Hijacker)
	if !ok {
		t.Fatal("wrapper does not implement http.Hijacker")
	}

	conn, _, err := hj.Hijack()
	if err != nil {
		t.Fatalf("Hijack() error = %v", err)
	}
	conn.Close()

	if !under.hijacked {
		t.Error("underlying writer was not hijacked")
	}
	if rw.statusCode != http.StatusSwitchingProtocols {
		t.Errorf("statusCode = %d, want 101", rw.statusCode)
	}

	if err := http.NewResponseController(newResponseWriter(httptest.NewRecorder())).Flush(); err != nil {
		t.Errorf("ResponseController.Flush() error = %v", err)
	}
}

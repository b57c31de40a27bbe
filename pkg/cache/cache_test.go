package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"kurp-hq/kurp/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewHistory_InvalidSize(t *testing.T) {
	if _, err := NewHistory(0, nil); err == nil {
		t.Error("NewHistory(0) error = nil, want error")
	}
}

func TestHistory_RecordAndContains(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := NewHistory(2, metrics.NewCollector(reg))
	if err != nil {
		t.Fatal(err)
	}

	if h.Contains("/api/v1/books/1/pages/1") {
		t.Error("Contains() = true before Record")
	}
	h.Record("/api/v1/books/1/pages/1")
	if !h.Contains("/api/v1/books/1/pages/1") {
		t.Error("Contains() = false after Record")
	}
	if h.Contains("/api/v1/books/1/pages/1?zero_based=true") {
		t.Error("Contains() matched a different query string")
	}

	const want = `
# HELP kurp_cache_hits_total Total number of cache hits
# TYPE kurp_cache_hits_total counter
kurp_cache_hits_total{cache="history"} 1
# HELP kurp_cache_misses_total Total number of cache misses
# TYPE kurp_cache_misses_total counter
kurp_cache_misses_total{cache="history"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "kurp_cache_hits_total", "kurp_cache_misses_total"); err != nil {
		t.Error(err)
	}
}

func TestHistory_EvictsLeastRecentlyUsed(t *testing.T) {
	h, _ := NewHistory(2, nil)

	h.Record("/a")
	h.Record("/b")
	h.Contains("/a")
	h.Record("/c")

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
	if h.Contains("/b") {
		t.Error("least recently used entry /b survived")
	}
	if !h.Contains("/a") || !h.Contains("/c") {
		t.Error("recent entries were evicted")
	}
}

func TestHistory_InvalidateAndResize(t *testing.T) {
	h, _ := NewHistory(10, nil)
	for _, k := range []string{"/a", "/b", "/c"} {
		h.Record(k)
	}

	h.Resize(1)
	if h.Len() != 1 || !h.Contains("/c") {
		t.Errorf("after Resize(1) Len() = %d, want only /c", h.Len())
	}

	h.Invalidate()
	if h.Len() != 0 {
		t.Errorf("Len() after Invalidate = %d, want 0", h.Len())
	}
}

func TestTags_GetSet(t *testing.T) {
	c := NewTags(10, time.Minute, nil)

	if _, ok := c.Get("book-1"); ok {
		t.Error("Get() ok = true on empty cache")
	}

	c.Set("book-1", true)
	c.Set("book-2", false)

	tests := []struct {
		id   string
		want bool
	}{
		{"book-1", true},
		{"book-2", false},
	}
	for _, tt := range tests {
		got, ok := c.Get(tt.id)
		if !ok {
			t.Errorf("Get(%q) ok = false, want true", tt.id)
			continue
		}
		if got != tt.want {
			t.Errorf("Get(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestTags_Expires(t *testing.T) {
	c := NewTags(10, 20*time.Millisecond, nil)
	c.Set("chapter-9", true)

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("chapter-9"); ok {
		t.Error("Get() ok = true after TTL")
	}
}

func TestTags_InvalidateAndReconfigure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewTags(10, time.Minute, metrics.NewCollector(reg))
	c.Set("1", true)

	c.Invalidate()
	if _, ok := c.Get("1"); ok {
		t.Error("Get() ok = true after Invalidate")
	}

	c.Set("1", true)
	c.Reconfigure(5, 2*time.Minute)
	if c.Len() != 0 {
		t.Errorf("Len() after Reconfigure = %d, want 0", c.Len())
	}
	c.Set("2", true)
	if _, ok := c.Get("2"); !ok {
		t.Error("Get() ok = false after Reconfigure")
	}

	const want = `
# HELP kurp_cache_invalidations_total Total number of wholesale cache invalidations
# TYPE kurp_cache_invalidations_total counter
kurp_cache_invalidations_total{cache="tags"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "kurp_cache_invalidations_total"); err != nil {
		t.Error(err)
	}
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

func TestFlusher_Flush(t *testing.T) {
	a, b := &countingInvalidator{}, &countingInvalidator{}
	calls := 0
	f := NewFlusher("", nil, a, b, InvalidatorFunc(func() { calls++ }))

	f.Flush()
	if a.n != 1 || b.n != 1 || calls != 1 {
		t.Errorf("invalidations = %d/%d/%d, want 1/1/1", a.n, b.n, calls)
	}
}

func TestFlusher_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantErr     bool
		wantRunning bool
	}{
		{name: "disabled", schedule: ""},
		{name: "hourly", schedule: "0 * * * *", wantRunning: true},
		{name: "descriptor", schedule: "@every 10m", wantRunning: true},
		{name: "invalid", schedule: "every tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFlusher(tt.schedule, nil, &countingInvalidator{})
			err := f.Start(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			defer f.Stop()

			if got := f.NextRun() != nil; got != tt.wantRunning {
				t.Errorf("NextRun() != nil = %v, want %v", got, tt.wantRunning)
			}
		})
	}
}

func TestFlusher_StopsWithContext(t *testing.T) {
	f := NewFlusher("@every 1h", nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := f.Start(ctx); err != nil {
		t.Fatal(err)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for f.NextRun() != nil {
		if time.Now().After(deadline) {
			t.Fatal("flusher still running after context cancellation")
		}
		time.Sleep(time.Millisecond)
	}
}

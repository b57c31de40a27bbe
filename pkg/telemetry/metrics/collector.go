package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace prefixes every metric name.
const Namespace = "kurp"

// Collector is the single entry point for recording proxy metrics.
// It outlives server generations: the run loop creates one Collector and
// passes it to every generation so counters survive configuration reloads.
//
// All methods are safe to call on a nil *Collector, which records nothing.
type Collector struct {
	registry *prometheus.Registry

	requestMetrics  *RequestMetrics
	upscaleMetrics  *UpscaleMetrics
	cacheMetrics    *CacheMetrics
	sessionsCurrent prometheus.Gauge
}

// NewCollector creates a collector and registers all metrics with registry.
// If registry is nil, a new registry is created that also carries the Go
// runtime and process collectors.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry:       registry,
		requestMetrics: NewRequestMetrics(registry),
		upscaleMetrics: NewUpscaleMetrics(registry),
		cacheMetrics:   NewCacheMetrics(registry),
		sessionsCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "websocket_sessions",
			Help:      "Number of bridged WebSocket sessions currently open",
		}),
	}
	registry.MustRegister(c.sessionsCurrent)

	return c
}

// RecordRequest records a completed HTTP request.
//
// Parameters:
//   - route: mux pattern that served the request (bounded cardinality)
//   - status: HTTP status code written to the client
//   - duration: total handling time
func (c *Collector) RecordRequest(route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.requestMetrics.RecordRequest(route, status, duration)
}

// RecordUpscale records the outcome of one image transcode.
// result is one of ResultUpscaled, ResultSkipped or ResultError.
func (c *Collector) RecordUpscale(result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.upscaleMetrics.RecordUpscale(result, duration)
}

// RecordWorkerRestart records a supervisor restart after an engine fault.
func (c *Collector) RecordWorkerRestart() {
	if c == nil {
		return
	}
	c.upscaleMetrics.RecordRestart()
}

// UpdateQueueDepth sets the number of jobs waiting for the worker.
func (c *Collector) UpdateQueueDepth(depth int) {
	if c == nil {
		return
	}
	c.upscaleMetrics.UpdateQueueDepth(depth)
}

// RecordCacheHit records a cache hit.
//
// Parameters:
//   - cacheName: Name of the cache ("history", "tags")
func (c *Collector) RecordCacheHit(cacheName string) {
	if c == nil {
		return
	}
	c.cacheMetrics.RecordHit(cacheName)
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheName string) {
	if c == nil {
		return
	}
	c.cacheMetrics.RecordMiss(cacheName)
}

// RecordCacheInvalidation records a wholesale cache clear.
func (c *Collector) RecordCacheInvalidation(cacheName string) {
	if c == nil {
		return
	}
	c.cacheMetrics.RecordInvalidation(cacheName)
}

// RecordCacheEviction records an entry dropped because the cache was full.
func (c *Collector) RecordCacheEviction(cacheName string) {
	if c == nil {
		return
	}
	c.cacheMetrics.RecordEviction(cacheName)
}

// UpdateCacheSize updates the current size of a cache.
func (c *Collector) UpdateCacheSize(cacheName string, size int) {
	if c == nil {
		return
	}
	c.cacheMetrics.UpdateSize(cacheName, size)
}

// SessionOpened increments the open WebSocket session gauge.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsCurrent.Inc()
}

// SessionClosed decrements the open WebSocket session gauge.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsCurrent.Dec()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

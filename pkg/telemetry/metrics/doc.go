// Package metrics provides Prometheus metrics collection for kurp.
//
// # Metrics Categories
//
//   - Request Metrics: request count and duration by route
//   - Upscale Metrics: transcode outcomes, duration, worker restarts, queue depth
//   - Cache Metrics: hits, misses, sizes, evictions and invalidations
//   - WebSocket sessions currently bridged
//
// # Usage
//
//	collector := metrics.NewCollector(nil)
//	collector.RecordUpscale(metrics.ResultUpscaled, 800*time.Millisecond)
//	collector.RecordCacheHit("tags")
//	mux.Handle("/metrics", collector.Handler())
//
// A nil *Collector is valid and discards every observation, which keeps
// components usable in tests without a registry.
//
// # Prometheus Endpoint
//
//	# HELP kurp_upscale_total Total number of image transcodes by result
//	# TYPE kurp_upscale_total counter
//	kurp_upscale_total{result="upscaled"} 1234
package metrics

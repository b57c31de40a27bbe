package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Upscale results.
const (
	ResultUpscaled = "upscaled"
	ResultSkipped  = "skipped"
	ResultError    = "error"
)

// UpscaleMetrics tracks the transcode pipeline and the worker.
//
// Metrics:
//   - kurp_upscale_total: Transcodes by result
//   - kurp_upscale_duration_seconds: Transcode duration
//   - kurp_worker_restarts_total: Supervisor restarts after engine faults
//   - kurp_worker_queue_depth: Jobs waiting for the worker
type UpscaleMetrics struct {
	upscaleTotal    *prometheus.CounterVec
	upscaleDuration prometheus.Histogram
	restartsTotal   prometheus.Counter
	queueDepth      prometheus.Gauge
}

// NewUpscaleMetrics creates and registers upscale metrics with the provided registry.
func NewUpscaleMetrics(registry *prometheus.Registry) *UpscaleMetrics {
	um := &UpscaleMetrics{
		upscaleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "upscale_total",
				Help:      "Total number of image transcodes by result",
			},
			[]string{"result"},
		),

		upscaleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "upscale_duration_seconds",
				Help:      "Duration of image transcodes in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),

		restartsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "worker_restarts_total",
				Help:      "Total number of worker restarts after engine faults",
			},
		),

		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "worker_queue_depth",
				Help:      "Number of upscale jobs waiting for the worker",
			},
		),
	}

	registry.MustRegister(um.upscaleTotal, um.upscaleDuration, um.restartsTotal, um.queueDepth)

	return um
}

// RecordUpscale records one transcode outcome.
func (um *UpscaleMetrics) RecordUpscale(result string, duration time.Duration) {
	um.upscaleTotal.WithLabelValues(result).Inc()
	if result == ResultUpscaled {
		um.upscaleDuration.Observe(duration.Seconds())
	}
}

// RecordRestart increments the restart counter.
func (um *UpscaleMetrics) RecordRestart() {
	um.restartsTotal.Inc()
}

// UpdateQueueDepth sets the queue depth gauge.
func (um *UpscaleMetrics) UpdateQueueDepth(depth int) {
	um.queueDepth.Set(float64(depth))
}

package config

import "time"

// Config is the root configuration document for the proxy.
// It is loaded once per server generation and never mutated afterwards;
// a reload produces a new *Config that replaces the old one wholesale.
type Config struct {
	// Port is the TCP port the proxy listens on (all interfaces).
	// Default: 3030
	Port int `yaml:"port"`

	// UpstreamURL is the base URL of the Komga or Kavita server.
	// Default: "http://localhost:8080"
	UpstreamURL string `yaml:"upstream_url"`

	// Backend selects the metadata API flavor used by the tag gate.
	// Options: "komga", "kavita"
	// Default: "komga"
	Backend string `yaml:"backend"`

	// Upscale enables interception of image routes. When false every route
	// is a plain passthrough.
	// Default: true
	Upscale bool `yaml:"upscale"`

	// ReturnFormat is the image format written after upscaling.
	// Options: "png", "jpeg", "webp", "original"
	// Default: "webp"
	ReturnFormat string `yaml:"return_format"`

	// SizeThresholdEnabled skips upscaling for images larger than the
	// thresholds below.
	// Default: true
	SizeThresholdEnabled bool `yaml:"size_threshold_enabled"`

	// SizeThreshold is the maximum decompressed size in KB of lossy images
	// (jpeg, webp, gif) that will still be upscaled.
	// Default: 500
	SizeThreshold int `yaml:"size_threshold"`

	// SizeThresholdPNG is the maximum decompressed size in KB of PNG images
	// that will still be upscaled.
	// Default: 1000
	SizeThresholdPNG int `yaml:"size_threshold_png"`

	// UpscaleTag restricts upscaling to resources carrying this tag
	// (case-insensitive). Empty means every resource is upscaled.
	UpscaleTag string `yaml:"upscale_tag,omitempty"`

	// AllowConfigUpdates exposes GET/POST /kurp/config.
	// Default: false
	AllowConfigUpdates bool `yaml:"allow_config_updates"`

	// Upscaler selects the engine.
	// Options: "waifu2x", "realcugan", "resample"
	// Default: "waifu2x"
	Upscaler string `yaml:"upscaler"`

	Waifu2x   Waifu2xConfig   `yaml:"waifu2x"`
	RealCugan RealCuganConfig `yaml:"realcugan"`
	Resample  ResampleConfig  `yaml:"resample"`

	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// Waifu2xConfig holds the tunables passed to waifu2x-ncnn-vulkan.
type Waifu2xConfig struct {
	GPUID      int    `yaml:"gpu_id"`
	Scale      int    `yaml:"scale"`
	Noise      int    `yaml:"noise"`
	Model      string `yaml:"model"`
	TileSize   int    `yaml:"tile_size"`
	TTAMode    bool   `yaml:"tta_mode"`
	NumThreads int    `yaml:"num_threads"`
	ModelsPath string `yaml:"models_path"`

	// Binary is the executable name or absolute path.
	Binary string `yaml:"binary"`
}

// RealCuganConfig holds the tunables passed to realcugan-ncnn-vulkan.
type RealCuganConfig struct {
	GPUID      int    `yaml:"gpu_id"`
	Scale      int    `yaml:"scale"`
	Noise      int    `yaml:"noise"`
	Model      string `yaml:"model"`
	TileSize   int    `yaml:"tile_size"`
	SyncGap    int    `yaml:"sync_gap"`
	TTAMode    bool   `yaml:"tta_mode"`
	NumThreads int    `yaml:"num_threads"`
	ModelsPath string `yaml:"models_path"`
	Binary     string `yaml:"binary"`
}

// ResampleConfig configures the in-process interpolation engine.
type ResampleConfig struct {
	Scale int `yaml:"scale"`

	// Kernel is one of "catmullrom", "bilinear", "approxbilinear", "nearest".
	Kernel string `yaml:"kernel"`
}

// ServerConfig contains HTTP server timeouts and limits.
type ServerConfig struct {
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is zero by default: upscaling a page on a slow GPU can
	// take longer than any sensible fixed bound.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds the graceful drain on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// ForceShutdownTimeout bounds the drain when the server restarts for a
	// configuration reload.
	ForceShutdownTimeout time.Duration `yaml:"force_shutdown_timeout"`

	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// UpstreamTimeout bounds requests issued to the backend metadata API.
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
}

// CacheConfig sizes the call-history and tag-decision caches.
type CacheConfig struct {
	HistorySize int           `yaml:"history_size"`
	TagTTL      time.Duration `yaml:"tag_ttl"`
	TagSize     int           `yaml:"tag_size"`

	// FlushSchedule is an optional cron expression on which both caches are
	// cleared.
	FlushSchedule string `yaml:"flush_schedule,omitempty"`
}

// EngineConfig tunes the upscale worker.
type EngineConfig struct {
	// JobTimeout bounds a single engine invocation.
	JobTimeout time.Duration `yaml:"job_timeout"`

	// QueueSize is the buffer of the worker request channel. Callers block
	// (they are not rejected) once it is full.
	QueueSize int `yaml:"queue_size"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is one of "json", "text".
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig configures OpenTelemetry trace export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string `yaml:"endpoint"`

	Insecure bool `yaml:"insecure"`

	// Sampler is one of "always", "never", "ratio".
	Sampler     string  `yaml:"sampler"`
	SampleRatio float64 `yaml:"sample_ratio"`

	ServiceName string `yaml:"service_name"`
}

// Threshold returns the size threshold in KB that applies to an image of
// the given MIME type.
func (c *Config) Threshold(contentType string) int {
	if contentType == "image/png" {
		return c.SizeThresholdPNG
	}
	return c.SizeThreshold
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

package config

import (
	"path/filepath"
	"time"
)

// Default values for configuration fields.
const (
	DefaultPort                 = 3030
	DefaultUpstreamURL          = "http://localhost:8080"
	DefaultBackend              = BackendKomga
	DefaultUpscale              = true
	DefaultReturnFormat         = FormatWebP
	DefaultSizeThresholdEnabled = true
	DefaultSizeThreshold        = 500
	DefaultSizeThresholdPNG     = 1000
	DefaultUpscaler             = UpscalerWaifu2x

	// Engine defaults
	DefaultGPUID          = 0
	DefaultScale          = 2
	DefaultNoise          = -1
	DefaultWaifu2xModel   = "cunet"
	DefaultRealCuganModel = "se"
	DefaultSyncGap        = 3
	DefaultNumThreads     = 2
	DefaultWaifu2xBinary  = "waifu2x-ncnn-vulkan"
	DefaultRealCuganBin   = "realcugan-ncnn-vulkan"
	DefaultResampleKernel = "catmullrom"
	DefaultModelsDir      = "models"

	// Server defaults
	DefaultReadTimeout          = 30 * time.Second
	DefaultIdleTimeout          = 120 * time.Second
	DefaultShutdownTimeout      = 30 * time.Second
	DefaultForceShutdownTimeout = 1 * time.Second
	DefaultMaxHeaderBytes       = 1048576 // 1MB
	DefaultUpstreamTimeout      = 30 * time.Second

	// Cache defaults
	DefaultHistorySize = 1000
	DefaultTagTTL      = 3 * time.Minute
	DefaultTagSize     = 10000

	// Worker defaults
	DefaultJobTimeout = 5 * time.Minute
	DefaultQueueSize  = 100

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"

	// Tracing defaults
	DefaultTracingEndpoint = "localhost:4317"
	DefaultTracingSampler  = "always"
	DefaultSampleRatio     = 1.0
	DefaultServiceName     = "kurp"
)

// Backend flavors.
const (
	BackendKomga  = "komga"
	BackendKavita = "kavita"
)

// Engine selectors.
const (
	UpscalerWaifu2x   = "waifu2x"
	UpscalerRealCugan = "realcugan"
	UpscalerResample  = "resample"
)

// Return formats.
const (
	FormatPNG      = "png"
	FormatJPEG     = "jpeg"
	FormatWebP     = "webp"
	FormatOriginal = "original"
)

// Default returns a fully populated configuration. The YAML document is
// decoded on top of it so that absent keys keep their default, including
// booleans whose default is true.
func Default(configDir string) *Config {
	modelsPath := filepath.Join(configDir, DefaultModelsDir)

	return &Config{
		Port:                 DefaultPort,
		UpstreamURL:          DefaultUpstreamURL,
		Backend:              DefaultBackend,
		Upscale:              DefaultUpscale,
		ReturnFormat:         DefaultReturnFormat,
		SizeThresholdEnabled: DefaultSizeThresholdEnabled,
		SizeThreshold:        DefaultSizeThreshold,
		SizeThresholdPNG:     DefaultSizeThresholdPNG,
		Upscaler:             DefaultUpscaler,
		Waifu2x: Waifu2xConfig{
			GPUID:      DefaultGPUID,
			Scale:      DefaultScale,
			Noise:      DefaultNoise,
			Model:      DefaultWaifu2xModel,
			NumThreads: DefaultNumThreads,
			ModelsPath: modelsPath,
			Binary:     DefaultWaifu2xBinary,
		},
		RealCugan: RealCuganConfig{
			GPUID:      DefaultGPUID,
			Scale:      DefaultScale,
			Noise:      DefaultNoise,
			Model:      DefaultRealCuganModel,
			SyncGap:    DefaultSyncGap,
			NumThreads: DefaultNumThreads,
			ModelsPath: modelsPath,
			Binary:     DefaultRealCuganBin,
		},
		Resample: ResampleConfig{
			Scale:  DefaultScale,
			Kernel: DefaultResampleKernel,
		},
		Server: ServerConfig{
			ReadTimeout:          DefaultReadTimeout,
			IdleTimeout:          DefaultIdleTimeout,
			ShutdownTimeout:      DefaultShutdownTimeout,
			ForceShutdownTimeout: DefaultForceShutdownTimeout,
			MaxHeaderBytes:       DefaultMaxHeaderBytes,
			UpstreamTimeout:      DefaultUpstreamTimeout,
		},
		Cache: CacheConfig{
			HistorySize: DefaultHistorySize,
			TagTTL:      DefaultTagTTL,
			TagSize:     DefaultTagSize,
		},
		Engine: EngineConfig{
			JobTimeout: DefaultJobTimeout,
			QueueSize:  DefaultQueueSize,
		},
		Logging: LoggingConfig{
			Level:  DefaultLoggingLevel,
			Format: DefaultLoggingFormat,
		},
		Metrics: MetricsConfig{
			Enabled: DefaultMetricsEnabled,
			Path:    DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			Endpoint:    DefaultTracingEndpoint,
			Insecure:    true,
			Sampler:     DefaultTracingSampler,
			SampleRatio: DefaultSampleRatio,
			ServiceName: DefaultServiceName,
		},
	}
}

// ApplyDefaults fills zero-valued numeric and string fields that a document
// explicitly blanked (e.g. `port: 0`, `binary: ""`).
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config, configDir string) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = DefaultUpstreamURL
	}
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	if cfg.ReturnFormat == "" {
		cfg.ReturnFormat = DefaultReturnFormat
	}
	if cfg.Upscaler == "" {
		cfg.Upscaler = DefaultUpscaler
	}

	modelsPath := filepath.Join(configDir, DefaultModelsDir)

	// Engine defaults
	if cfg.Waifu2x.Scale == 0 {
		cfg.Waifu2x.Scale = DefaultScale
	}
	if cfg.Waifu2x.Model == "" {
		cfg.Waifu2x.Model = DefaultWaifu2xModel
	}
	if cfg.Waifu2x.ModelsPath == "" {
		cfg.Waifu2x.ModelsPath = modelsPath
	}
	if cfg.Waifu2x.Binary == "" {
		cfg.Waifu2x.Binary = DefaultWaifu2xBinary
	}
	if cfg.RealCugan.Scale == 0 {
		cfg.RealCugan.Scale = DefaultScale
	}
	if cfg.RealCugan.Model == "" {
		cfg.RealCugan.Model = DefaultRealCuganModel
	}
	if cfg.RealCugan.ModelsPath == "" {
		cfg.RealCugan.ModelsPath = modelsPath
	}
	if cfg.RealCugan.Binary == "" {
		cfg.RealCugan.Binary = DefaultRealCuganBin
	}
	if cfg.Resample.Scale == 0 {
		cfg.Resample.Scale = DefaultScale
	}
	if cfg.Resample.Kernel == "" {
		cfg.Resample.Kernel = DefaultResampleKernel
	}

	// Server defaults
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.ForceShutdownTimeout == 0 {
		cfg.Server.ForceShutdownTimeout = DefaultForceShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.UpstreamTimeout == 0 {
		cfg.Server.UpstreamTimeout = DefaultUpstreamTimeout
	}

	// Cache defaults
	if cfg.Cache.HistorySize == 0 {
		cfg.Cache.HistorySize = DefaultHistorySize
	}
	if cfg.Cache.TagTTL == 0 {
		cfg.Cache.TagTTL = DefaultTagTTL
	}
	if cfg.Cache.TagSize == 0 {
		cfg.Cache.TagSize = DefaultTagSize
	}

	if cfg.Engine.JobTimeout == 0 {
		cfg.Engine.JobTimeout = DefaultJobTimeout
	}
	if cfg.Engine.QueueSize == 0 {
		cfg.Engine.QueueSize = DefaultQueueSize
	}

	// Telemetry defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultServiceName
	}
}

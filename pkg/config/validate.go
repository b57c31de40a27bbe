package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.read_timeout").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(cfg)...)
	errs = append(errs, validateUpscaling(cfg)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateTelemetry(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateProxy validates the listener and upstream settings.
func validateProxy(cfg *Config) []FieldError {
	var errs []FieldError

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		})
	}

	if u, err := url.Parse(cfg.UpstreamURL); err != nil {
		errs = append(errs, FieldError{
			Field:   "upstream_url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, FieldError{
			Field:   "upstream_url",
			Message: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme),
		})
	} else if u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "upstream_url",
			Message: "host is required",
		})
	}

	switch cfg.Backend {
	case BackendKomga, BackendKavita:
	default:
		errs = append(errs, FieldError{
			Field:   "backend",
			Message: fmt.Sprintf("must be one of: komga, kavita (got %q)", cfg.Backend),
		})
	}

	return errs
}

// validateUpscaling validates output format, thresholds and the selected engine.
func validateUpscaling(cfg *Config) []FieldError {
	var errs []FieldError

	switch cfg.ReturnFormat {
	case FormatPNG, FormatJPEG, FormatWebP, FormatOriginal:
	default:
		errs = append(errs, FieldError{
			Field:   "return_format",
			Message: fmt.Sprintf("must be one of: png, jpeg, webp, original (got %q)", cfg.ReturnFormat),
		})
	}

	if cfg.SizeThreshold < 0 {
		errs = append(errs, FieldError{
			Field:   "size_threshold",
			Message: "size threshold must be non-negative",
		})
	}
	if cfg.SizeThresholdPNG < 0 {
		errs = append(errs, FieldError{
			Field:   "size_threshold_png",
			Message: "size threshold must be non-negative",
		})
	}

	switch cfg.Upscaler {
	case UpscalerWaifu2x:
		w := cfg.Waifu2x
		if !oneOf(w.Scale, 1, 2, 4, 8, 16, 32) {
			errs = append(errs, FieldError{
				Field:   "waifu2x.scale",
				Message: fmt.Sprintf("must be one of: 1, 2, 4, 8, 16, 32 (got %d)", w.Scale),
			})
		}
		if w.Noise < -1 || w.Noise > 3 {
			errs = append(errs, FieldError{
				Field:   "waifu2x.noise",
				Message: fmt.Sprintf("must be between -1 and 3, got %d", w.Noise),
			})
		}
		errs = append(errs, validateEngineCommon("waifu2x", w.TileSize, w.NumThreads, w.GPUID)...)
	case UpscalerRealCugan:
		r := cfg.RealCugan
		if r.Scale < 1 || r.Scale > 4 {
			errs = append(errs, FieldError{
				Field:   "realcugan.scale",
				Message: fmt.Sprintf("must be between 1 and 4, got %d", r.Scale),
			})
		}
		if r.Noise < -1 || r.Noise > 3 {
			errs = append(errs, FieldError{
				Field:   "realcugan.noise",
				Message: fmt.Sprintf("must be between -1 and 3, got %d", r.Noise),
			})
		}
		if r.SyncGap < 0 || r.SyncGap > 3 {
			errs = append(errs, FieldError{
				Field:   "realcugan.sync_gap",
				Message: fmt.Sprintf("must be between 0 and 3, got %d", r.SyncGap),
			})
		}
		errs = append(errs, validateEngineCommon("realcugan", r.TileSize, r.NumThreads, r.GPUID)...)
	case UpscalerResample:
		if cfg.Resample.Scale < 1 || cfg.Resample.Scale > 8 {
			errs = append(errs, FieldError{
				Field:   "resample.scale",
				Message: fmt.Sprintf("must be between 1 and 8, got %d", cfg.Resample.Scale),
			})
		}
		switch cfg.Resample.Kernel {
		case "catmullrom", "bilinear", "approxbilinear", "nearest":
		default:
			errs = append(errs, FieldError{
				Field:   "resample.kernel",
				Message: fmt.Sprintf("must be one of: catmullrom, bilinear, approxbilinear, nearest (got %q)", cfg.Resample.Kernel),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "upscaler",
			Message: fmt.Sprintf("must be one of: waifu2x, realcugan, resample (got %q)", cfg.Upscaler),
		})
	}

	return errs
}

func validateEngineCommon(prefix string, tileSize, threads, gpuID int) []FieldError {
	var errs []FieldError

	if tileSize != 0 && tileSize < 32 {
		errs = append(errs, FieldError{
			Field:   prefix + ".tile_size",
			Message: "tile size must be 0 (auto) or at least 32",
		})
	}
	if threads < 1 {
		errs = append(errs, FieldError{
			Field:   prefix + ".num_threads",
			Message: "thread count must be at least 1",
		})
	}
	if gpuID < -1 {
		errs = append(errs, FieldError{
			Field:   prefix + ".gpu_id",
			Message: "gpu id must be -1 (cpu) or a device index",
		})
	}

	return errs
}

// validateServer validates server timeouts and limits.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be non-negative",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}
	if cfg.ForceShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.force_shutdown_timeout",
			Message: "force shutdown timeout must be positive",
		})
	}
	if cfg.UpstreamTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.upstream_timeout",
			Message: "upstream timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	return errs
}

// validateCache validates cache sizing and the flush schedule.
func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	if cfg.HistorySize < 1 {
		errs = append(errs, FieldError{
			Field:   "cache.history_size",
			Message: "history size must be at least 1",
		})
	}
	if cfg.TagSize < 1 {
		errs = append(errs, FieldError{
			Field:   "cache.tag_size",
			Message: "tag cache size must be at least 1",
		})
	}
	if cfg.TagTTL <= 0 {
		errs = append(errs, FieldError{
			Field:   "cache.tag_ttl",
			Message: "tag TTL must be positive",
		})
	}

	if cfg.FlushSchedule != "" {
		if _, err := cron.ParseStandard(cfg.FlushSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "cache.flush_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.JobTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "engine.job_timeout",
			Message: "job timeout must be positive",
		})
	}
	if cfg.QueueSize < 0 {
		errs = append(errs, FieldError{
			Field:   "engine.queue_size",
			Message: "queue size must be non-negative",
		})
	}

	return errs
}

// validateTelemetry validates logging and metrics configuration.
func validateTelemetry(cfg *Config) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level),
		})
	}

	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("must be one of: json, text (got %q)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "metrics.path",
				Message: "metrics path must start with /",
			})
		}
		if strings.HasPrefix(cfg.Metrics.Path, "/api/") || strings.HasPrefix(cfg.Metrics.Path, "/hubs/") {
			errs = append(errs, FieldError{
				Field:   "metrics.path",
				Message: "metrics path must not shadow an upstream route",
			})
		}
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
		switch cfg.Tracing.Sampler {
		case "always", "never":
		case "ratio":
			if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
				errs = append(errs, FieldError{
					Field:   "tracing.sample_ratio",
					Message: fmt.Sprintf("must be between 0.0 and 1.0, got %g", cfg.Tracing.SampleRatio),
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   "tracing.sampler",
				Message: fmt.Sprintf("must be one of: always, never, ratio (got %q)", cfg.Tracing.Sampler),
			})
		}
	}

	return errs
}

func oneOf(v int, allowed ...int) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration document inside the config directory.
const FileName = "config.yml"

// EnvConfDir names the environment variable that overrides the config directory.
const EnvConfDir = "KURP_CONF_DIR"

// ResolveDir returns the configuration directory. An explicit flag value wins,
// then KURP_CONF_DIR, then the current working directory.
func ResolveDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if val := os.Getenv(EnvConfDir); val != "" {
		return val
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// Path returns the location of the configuration document within dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// LoadConfig loads configuration from the YAML document in dir.
// A missing file is not an error: the defaults are used instead.
// Environment overrides are not applied; use LoadConfigWithEnvOverrides for that.
func LoadConfig(dir string) (*Config, error) {
	path := Path(dir)

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from dir and applies
// environment variable overrides. Environment variables follow the naming
// convention KURP_SECTION_FIELD (e.g., KURP_SERVER_READ_TIMEOUT).
//
// The loading sequence is:
// 1. Load YAML from file on top of the defaults
// 2. Apply default values to blanked fields
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(dir string) (*Config, error) {
	path := Path(dir)

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// Parse decodes a YAML document on top of the defaults. Unknown keys are
// ignored. The result is not validated.
func Parse(data []byte, dir string) (*Config, error) {
	cfg := Default(dir)
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	ApplyDefaults(cfg, dir)
	return cfg, nil
}

// Write validates cfg and persists it as the configuration document in dir.
// The document is written to a temporary file first and renamed into place
// so that watchers never observe a partial write.
func Write(dir string, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create configuration directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+FileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary configuration file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	if err := os.Rename(tmpName, Path(dir)); err != nil {
		return fmt.Errorf("failed to replace configuration file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	envInt("KURP_PORT", &cfg.Port)
	envString("KURP_UPSTREAM_URL", &cfg.UpstreamURL)
	envString("KURP_BACKEND", &cfg.Backend)
	envBool("KURP_UPSCALE", &cfg.Upscale)
	envString("KURP_RETURN_FORMAT", &cfg.ReturnFormat)
	envBool("KURP_SIZE_THRESHOLD_ENABLED", &cfg.SizeThresholdEnabled)
	envInt("KURP_SIZE_THRESHOLD", &cfg.SizeThreshold)
	envInt("KURP_SIZE_THRESHOLD_PNG", &cfg.SizeThresholdPNG)
	envString("KURP_UPSCALE_TAG", &cfg.UpscaleTag)
	envBool("KURP_ALLOW_CONFIG_UPDATES", &cfg.AllowConfigUpdates)
	envString("KURP_UPSCALER", &cfg.Upscaler)

	// Engine overrides
	envInt("KURP_WAIFU2X_GPU_ID", &cfg.Waifu2x.GPUID)
	envInt("KURP_WAIFU2X_SCALE", &cfg.Waifu2x.Scale)
	envInt("KURP_WAIFU2X_NOISE", &cfg.Waifu2x.Noise)
	envString("KURP_WAIFU2X_MODEL", &cfg.Waifu2x.Model)
	envString("KURP_WAIFU2X_MODELS_PATH", &cfg.Waifu2x.ModelsPath)
	envString("KURP_WAIFU2X_BINARY", &cfg.Waifu2x.Binary)
	envInt("KURP_REALCUGAN_GPU_ID", &cfg.RealCugan.GPUID)
	envInt("KURP_REALCUGAN_SCALE", &cfg.RealCugan.Scale)
	envInt("KURP_REALCUGAN_NOISE", &cfg.RealCugan.Noise)
	envString("KURP_REALCUGAN_MODEL", &cfg.RealCugan.Model)
	envString("KURP_REALCUGAN_MODELS_PATH", &cfg.RealCugan.ModelsPath)
	envString("KURP_REALCUGAN_BINARY", &cfg.RealCugan.Binary)
	envInt("KURP_RESAMPLE_SCALE", &cfg.Resample.Scale)
	envString("KURP_RESAMPLE_KERNEL", &cfg.Resample.Kernel)

	// Server overrides
	envDuration("KURP_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("KURP_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("KURP_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("KURP_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envDuration("KURP_SERVER_FORCE_SHUTDOWN_TIMEOUT", &cfg.Server.ForceShutdownTimeout)
	envInt("KURP_SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	envDuration("KURP_SERVER_UPSTREAM_TIMEOUT", &cfg.Server.UpstreamTimeout)

	// Cache overrides
	envInt("KURP_CACHE_HISTORY_SIZE", &cfg.Cache.HistorySize)
	envDuration("KURP_CACHE_TAG_TTL", &cfg.Cache.TagTTL)
	envInt("KURP_CACHE_TAG_SIZE", &cfg.Cache.TagSize)
	envString("KURP_CACHE_FLUSH_SCHEDULE", &cfg.Cache.FlushSchedule)

	envDuration("KURP_ENGINE_JOB_TIMEOUT", &cfg.Engine.JobTimeout)
	envInt("KURP_ENGINE_QUEUE_SIZE", &cfg.Engine.QueueSize)

	// Telemetry overrides
	envString("KURP_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("KURP_LOGGING_FORMAT", &cfg.Logging.Format)
	envBool("KURP_METRICS_ENABLED", &cfg.Metrics.Enabled)
	envString("KURP_METRICS_PATH", &cfg.Metrics.Path)
	envBool("KURP_TRACING_ENABLED", &cfg.Tracing.Enabled)
	envString("KURP_TRACING_ENDPOINT", &cfg.Tracing.Endpoint)
	envBool("KURP_TRACING_INSECURE", &cfg.Tracing.Insecure)
	envString("KURP_TRACING_SAMPLER", &cfg.Tracing.Sampler)
	envFloat("KURP_TRACING_SAMPLE_RATIO", &cfg.Tracing.SampleRatio)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

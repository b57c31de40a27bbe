package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:      "port out of range",
			modify:    func(c *Config) { c.Port = 0 },
			wantField: "port",
		},
		{
			name:      "upstream without scheme",
			modify:    func(c *Config) { c.UpstreamURL = "localhost:8080" },
			wantField: "upstream_url",
		},
		{
			name:      "upstream without host",
			modify:    func(c *Config) { c.UpstreamURL = "http://" },
			wantField: "upstream_url",
		},
		{
			name:      "unknown backend",
			modify:    func(c *Config) { c.Backend = "plex" },
			wantField: "backend",
		},
		{
			name:      "unknown return format",
			modify:    func(c *Config) { c.ReturnFormat = "avif" },
			wantField: "return_format",
		},
		{
			name:      "negative threshold",
			modify:    func(c *Config) { c.SizeThresholdPNG = -1 },
			wantField: "size_threshold_png",
		},
		{
			name:      "waifu2x scale",
			modify:    func(c *Config) { c.Waifu2x.Scale = 3 },
			wantField: "waifu2x.scale",
		},
		{
			name:      "waifu2x noise",
			modify:    func(c *Config) { c.Waifu2x.Noise = 4 },
			wantField: "waifu2x.noise",
		},
		{
			name:      "waifu2x tile size",
			modify:    func(c *Config) { c.Waifu2x.TileSize = 16 },
			wantField: "waifu2x.tile_size",
		},
		{
			name: "realcugan scale",
			modify: func(c *Config) {
				c.Upscaler = UpscalerRealCugan
				c.RealCugan.Scale = 8
			},
			wantField: "realcugan.scale",
		},
		{
			name: "realcugan sync gap",
			modify: func(c *Config) {
				c.Upscaler = UpscalerRealCugan
				c.RealCugan.SyncGap = 5
			},
			wantField: "realcugan.sync_gap",
		},
		{
			name: "inactive engine is not validated",
			modify: func(c *Config) {
				c.Upscaler = UpscalerRealCugan
				c.Waifu2x.Scale = 3
			},
		},
		{
			name: "resample kernel",
			modify: func(c *Config) {
				c.Upscaler = UpscalerResample
				c.Resample.Kernel = "lanczos"
			},
			wantField: "resample.kernel",
		},
		{
			name:      "unknown upscaler",
			modify:    func(c *Config) { c.Upscaler = "bicubic" },
			wantField: "upscaler",
		},
		{
			name:      "negative write timeout",
			modify:    func(c *Config) { c.Server.WriteTimeout = -time.Second },
			wantField: "server.write_timeout",
		},
		{
			name:      "excessive header bytes",
			modify:    func(c *Config) { c.Server.MaxHeaderBytes = 11 * 1024 * 1024 },
			wantField: "server.max_header_bytes",
		},
		{
			name:      "zero tag ttl",
			modify:    func(c *Config) { c.Cache.TagTTL = 0 },
			wantField: "cache.tag_ttl",
		},
		{
			name:      "invalid cron",
			modify:    func(c *Config) { c.Cache.FlushSchedule = "every day" },
			wantField: "cache.flush_schedule",
		},
		{
			name:   "valid cron",
			modify: func(c *Config) { c.Cache.FlushSchedule = "0 4 * * *" },
		},
		{
			name:      "zero job timeout",
			modify:    func(c *Config) { c.Engine.JobTimeout = 0 },
			wantField: "engine.job_timeout",
		},
		{
			name:      "unknown log level",
			modify:    func(c *Config) { c.Logging.Level = "trace" },
			wantField: "logging.level",
		},
		{
			name:      "metrics path shadows upstream",
			modify:    func(c *Config) { c.Metrics.Path = "/api/metrics" },
			wantField: "metrics.path",
		},
		{
			name: "metrics path ignored when disabled",
			modify: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.Path = "metrics"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("/tmp/kurp")
			tt.modify(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range ve.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() errors = %v, want field %q", ve.Errors, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "port", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: port: bad" {
		t.Errorf("Error() = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "port", Message: "bad"},
		{Field: "backend", Message: "worse"},
	}}
	got := multi.Error()
	if !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - backend: worse") {
		t.Errorf("Error() = %q", got)
	}
}

func TestConfig_Threshold(t *testing.T) {
	cfg := Default("")
	if got := cfg.Threshold("image/png"); got != DefaultSizeThresholdPNG {
		t.Errorf("Threshold(png) = %d, want %d", got, DefaultSizeThresholdPNG)
	}
	if got := cfg.Threshold("image/jpeg"); got != DefaultSizeThreshold {
		t.Errorf("Threshold(jpeg) = %d, want %d", got, DefaultSizeThreshold)
	}
}

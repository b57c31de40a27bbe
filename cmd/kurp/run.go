package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"kurp-hq/kurp/pkg/cache"
	"kurp-hq/kurp/pkg/cli"
	"kurp-hq/kurp/pkg/config"
	"kurp-hq/kurp/pkg/server"
	"kurp-hq/kurp/pkg/telemetry/health"
	"kurp-hq/kurp/pkg/telemetry/logging"
	"kurp-hq/kurp/pkg/telemetry/metrics"
	"kurp-hq/kurp/pkg/telemetry/tracing"
	"kurp-hq/kurp/pkg/upscaler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the proxy",
	Long: `Start the proxy and serve until SIGINT or SIGTERM.

A change to config.yml, whether made by hand or through POST /kurp/config,
restarts the listener with the new settings. In-flight requests get
server.force_shutdown_timeout to finish before they are cut off.`,
	Args: cobra.NoArgs,
	RunE: runProxy,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runProxy(cmd *cobra.Command, args []string) error {
	dir := config.ResolveDir(configDir)
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		return cli.NewConfigError(config.Path(dir), err.Error())
	}
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	tracer, err := tracing.New(ctx, cfg.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	r, err := newRunner(dir, cfg, logger, tracer)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer r.close()

	watcher, err := config.NewFileWatcher(dir, config.DefaultDebounceInterval, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	go func() {
		if err := watcher.Watch(ctx, r.store.Refresh); err != nil {
			logger.Error("config watcher stopped", "error", err)
		}
	}()
	defer watcher.Stop()

	sig, stop := cli.WaitForShutdown()
	defer stop()

	logger.Info("starting kurp", "version", Version, "config", config.Path(dir))
	if err := r.run(ctx, sig); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// runner owns the process-lifetime state and restarts the server whenever
// the configuration store announces a new document.
type runner struct {
	store      *config.Store
	supervisor *upscaler.Supervisor
	history    *cache.History
	tags       *cache.Tags
	collector  *metrics.Collector
	tracer     *tracing.Tracer
	logger     *slog.Logger
	version    health.VersionInfo

	// settings is what the supervisor currently runs with, nil when the
	// engine is down.
	settings *upscaler.Settings
}

func newRunner(dir string, cfg *config.Config, logger *slog.Logger, tracer *tracing.Tracer) (*runner, error) {
	collector := metrics.NewCollector(prometheus.NewRegistry())

	history, err := cache.NewHistory(cfg.Cache.HistorySize, collector)
	if err != nil {
		return nil, err
	}

	return &runner{
		store:      config.NewStore(dir, cfg, logger),
		supervisor: upscaler.NewSupervisor(nil, logger, collector, tracer),
		history:    history,
		tags:       cache.NewTags(cfg.Cache.TagSize, cfg.Cache.TagTTL, collector),
		collector:  collector,
		tracer:     tracer,
		logger:     logger,
		version:    versionInfo(),
	}, nil
}

// generation is a running server. Cancelling it stops its cache flush.
type generation struct {
	cfg    *config.Config
	srv    *server.Server
	cancel context.CancelFunc
}

func (g *generation) stop(ctx context.Context, graceful bool) error {
	g.cancel()
	if graceful {
		return g.srv.Shutdown(ctx)
	}
	return g.srv.ForceShutdown(ctx)
}

// run serves generation after generation until a shutdown signal arrives,
// ctx ends or a server fails on its own.
func (r *runner) run(ctx context.Context, sig <-chan os.Signal) error {
	gen, err := r.start(ctx, r.store.Latest())
	if err != nil {
		return err
	}

	for {
		select {
		case s := <-sig:
			r.logger.Info("received signal, shutting down", "signal", s.String())
			return gen.stop(context.Background(), true)

		case <-ctx.Done():
			return gen.stop(context.Background(), true)

		case err := <-gen.srv.Err():
			gen.cancel()
			if err == nil {
				err = errors.New("server stopped unexpectedly")
			}
			return err

		case <-r.store.Reloads():
			next := r.store.Latest()
			r.logger.Info("configuration changed, restarting server")
			if err := gen.stop(ctx, false); err != nil {
				r.logger.Warn("previous server did not stop cleanly", "error", err)
			}

			prev := gen.cfg
			if gen, err = r.start(ctx, next); err != nil {
				r.logger.Error("failed to start with new configuration, restoring previous one", "error", err)
				if gen, err = r.start(ctx, prev); err != nil {
					return fmt.Errorf("failed to restore previous configuration: %w", err)
				}
			}
		}
	}
}

// start applies cfg to the shared state and brings up a server for it.
func (r *runner) start(ctx context.Context, cfg *config.Config) (*generation, error) {
	if logger, err := logging.New(logging.FromConfig(cfg.Logging)); err == nil {
		slog.SetDefault(logger)
		r.logger = logger
	}

	if err := r.applyEngine(cfg); err != nil {
		return nil, err
	}

	// Decisions and history from the previous generation may no longer hold
	// under the new tag or return format.
	r.history.Resize(cfg.Cache.HistorySize)
	r.tags.Reconfigure(cfg.Cache.TagSize, cfg.Cache.TagTTL)
	r.history.Invalidate()
	r.tags.Invalidate()

	srv, err := server.New(cfg, server.Deps{
		Store:      r.store,
		Supervisor: r.supervisor,
		History:    r.history,
		Tags:       r.tags,
		Metrics:    r.collector,
		Tracer:     r.tracer,
		Logger:     r.logger,
		Version:    r.version,
	})
	if err != nil {
		return nil, err
	}

	// The flusher lives as long as genCtx.
	genCtx, cancel := context.WithCancel(ctx)
	flusher := cache.NewFlusher(cfg.Cache.FlushSchedule, r.logger, cache.InvalidatorFunc(srv.Gate().InvalidateAll))
	if err := flusher.Start(genCtx); err != nil {
		cancel()
		return nil, err
	}

	if err := srv.Start(); err != nil {
		cancel()
		flusher.Stop()
		return nil, err
	}
	return &generation{cfg: cfg, srv: srv, cancel: cancel}, nil
}

// applyEngine brings the upscaler in line with cfg. The engine is rebuilt
// only when its settings changed.
func (r *runner) applyEngine(cfg *config.Config) error {
	if !cfg.Upscale {
		if r.settings != nil {
			r.supervisor.Deinitialize()
			r.settings = nil
		}
		return nil
	}

	settings := upscaler.SettingsFromConfig(cfg)
	if r.settings != nil && *r.settings == settings && r.supervisor.Ready() {
		return nil
	}
	if err := r.supervisor.Init(settings); err != nil {
		return err
	}
	r.settings = &settings
	return nil
}

func (r *runner) close() {
	r.supervisor.Close()
}

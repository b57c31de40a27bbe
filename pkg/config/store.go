package config

import (
	"log/slog"
	"reflect"
	"sync"
)

// Store owns the most recent configuration known to be on disk and signals
// when the server should restart with it. It replaces a process-wide
// singleton: the run loop creates one Store and hands it to every server
// generation.
type Store struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	latest *Config

	reload chan struct{}
}

// NewStore creates a store for the configuration directory dir, seeded with cfg.
func NewStore(dir string, cfg *Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:    dir,
		logger: logger,
		latest: cfg,
		reload: make(chan struct{}, 1),
	}
}

// Dir returns the configuration directory.
func (s *Store) Dir() string {
	return s.dir
}

// Latest returns the most recent valid configuration. The returned value
// must not be modified.
func (s *Store) Latest() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Reloads returns a channel that receives a value whenever a new
// configuration is available. Multiple pending reloads coalesce into one.
func (s *Store) Reloads() <-chan struct{} {
	return s.reload
}

// Update persists cfg to disk and schedules a reload. The stored value is
// re-read from disk so that environment overrides still apply on top.
func (s *Store) Update(cfg *Config) error {
	if err := Write(s.dir, cfg); err != nil {
		return err
	}

	loaded, err := LoadConfigWithEnvOverrides(s.dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.latest = loaded
	s.mu.Unlock()

	s.notify()
	return nil
}

// Refresh re-reads the configuration from disk and schedules a reload when
// it differs from the latest known configuration. An invalid document
// leaves the latest configuration untouched.
func (s *Store) Refresh() error {
	loaded, err := LoadConfigWithEnvOverrides(s.dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if reflect.DeepEqual(s.latest, loaded) {
		s.mu.Unlock()
		s.logger.Debug("configuration unchanged, ignoring")
		return nil
	}
	s.latest = loaded
	s.mu.Unlock()

	s.logger.Info("configuration changed on disk")
	s.notify()
	return nil
}

func (s *Store) notify() {
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

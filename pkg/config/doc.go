// Package config provides configuration management for kurp.
//
// This package handles loading, validating, persisting and watching the
// single YAML document (config.yml) that drives the proxy.
//
// # Configuration Loading
//
// The document lives in a configuration directory chosen by the --config-dir
// flag, the KURP_CONF_DIR environment variable or the working directory:
//
//	dir := config.ResolveDir(flagValue)
//	cfg, err := config.LoadConfigWithEnvOverrides(dir)
//
// A missing document is not an error; the defaults apply.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention KURP_SECTION_FIELD.
// For example:
//
//   - KURP_PORT overrides port
//   - KURP_UPSCALE_TAG overrides upscale_tag
//   - KURP_SERVER_SHUTDOWN_TIMEOUT overrides server.shutdown_timeout
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from the YAML document
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Reloading
//
// A Store holds the latest valid configuration and exposes a channel that
// fires when the server should restart with it. Store.Update persists a new
// document atomically; FileWatcher calls Store.Refresh after external edits,
// which ignores documents equal to the current configuration.
package config

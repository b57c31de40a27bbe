// Kurp is an upscaling reverse proxy for Komga and Kavita.
//
// It sits between comic readers and the media server, relays every request,
// and replaces page images with super-resolution upscaled versions on the
// way back.
//
// Usage:
//
//	# Start the proxy with config.yml from the current directory
//	kurp run
//
//	# Use another configuration directory
//	kurp run --config-dir /config
//
//	# Check a configuration document without starting
//	kurp config validate --config-dir /config
//
//	# Show version information
//	kurp version
package main

import "os"

func main() {
	os.Exit(Execute())
}

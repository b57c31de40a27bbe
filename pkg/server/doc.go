// Package server assembles one generation of the proxy: the route table,
// the middleware chain and the HTTP listener built from a single
// configuration.
//
// # Routes
//
// Image routes (the Komga page endpoint and the Kavita reader image
// endpoint) go through the upscale handler when upscaling is enabled. The
// SignalR hub at /hubs/messages is bridged as a WebSocket. Metadata writes
// that can change tags are watched when an upscale tag is configured, and
// the /kurp/config endpoints exist only when configuration updates are
// allowed. Health, readiness and version answer under /kurp. Every other
// request is relayed to the upstream unchanged.
//
// # Lifecycle
//
// A generation never changes its configuration. The run loop stops it and
// builds a new one on reload:
//
//	srv, err := server.New(cfg, deps)
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	...
//	srv.ForceShutdown(ctx) // reload
//	srv.Shutdown(ctx)      // exit
//
// Shutdown drains in-flight requests for server.shutdown_timeout.
// ForceShutdown waits at most server.force_shutdown_timeout before closing
// every connection, open WebSocket sessions included.
package server

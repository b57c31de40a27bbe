// Package health provides liveness, readiness and version endpoints.
//
// Liveness only confirms that the process answers HTTP. Readiness runs every
// registered check with a per-check timeout; the upscaler worker registers
// one so that a proxy that cannot transcode is reported as degraded:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("upscaler", worker.Ping)
//	health.Register(mux, "/kurp", checker, health.VersionInfo{Version: version})
//
// A "GET" pattern in net/http also matches HEAD, so load balancers can probe
// without a body.
package health

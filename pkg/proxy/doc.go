// Package proxy forwards reader traffic to the upstream Komga or Kavita
// server.
//
// The proxy is meant to be invisible: the upstream receives the client's
// method, path, query, headers and body, and the client receives the
// upstream's status, headers and body, including 3xx redirects and 304
// responses. Only hop-by-hop headers are dropped in both directions.
//
// # Components
//
//   - Forwarder: builds the upstream request and returns the raw response
//   - Header helpers: hop-by-hop removal, conditional header stripping,
//     WebSocket upgrade detection
//   - Error mapping: HandleError turns transport, transcode, engine and
//     backend failures into 502 JSON error bodies
//
// # Basic Usage
//
//	fwd, err := proxy.NewForwarder(cfg.UpstreamURL, transport, logger)
//	if err != nil {
//	    return err
//	}
//
//	resp, err := fwd.Forward(r.Context(), r)
//	if err != nil {
//	    proxy.WriteError(w, err)
//	    return
//	}
//	defer resp.Body.Close()
//	proxy.CopyResponse(w, resp)
//
// # Error Responses
//
// Errors raised by kurp itself are written as
//
//	{"error": {"message": "...", "type": "bad_gateway", "code": "upstream_error"}}
//
// Errors returned by the upstream are relayed untouched.
package proxy

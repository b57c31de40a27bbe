// Package handlers provides the HTTP handlers mounted by the server.
//
// # Handler Types
//
//   - PassthroughHandler: relays any request upstream unchanged
//   - UpscaleHandler: serves Komga and Kavita image pages, upscaled when
//     the resource passes the tag gate
//   - MetadataHandler: relays metadata edits and clears the upscale caches
//     when an edit touches tags
//   - ConfigHandler: reads and replaces the configuration document
//   - WebSocketHandler: bridges the Kavita realtime hub
//
// # Image Flow
//
// The upscale handler always asks the upstream first. 304s, errors and
// non-image bodies are relayed untouched, so the client sees exactly what
// the server sent. A 200 image is then gated, transcoded and written with
// rewritten Content-Type, Content-Length and Content-Disposition:
//
//	GET /api/v1/books/0A1B/pages/3
//	  -> upstream 200 image/jpeg (page-003.jpg)
//	  -> gate: book 0A1B carries "upscale"
//	  -> decode, upscale x2, encode webp
//	  <- 200 image/webp (page-003.webp)
//
// Conditional request headers are stripped until a page has been served
// upscaled once, so a browser holding the original never gets a 304 for it.
//
// # Error Handling
//
// Every failure between kurp and the upstream or the engine is a 502 with
// a JSON body:
//
//	{
//	  "error": {
//	    "message": "upscaler waifu2x faulted: exit status 1",
//	    "type": "bad_gateway",
//	    "code": "worker_unavailable"
//	  }
//	}
//
// Failed transcodes never fall back to the original bytes.
package handlers

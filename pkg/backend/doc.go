// Package backend implements the small part of the Komga and Kavita APIs
// that the tag gate needs: resolving an image resource to the tags of its
// book or series.
//
// Calls are made with the reader's own credentials. Komga accepts HTTP
// basic Authorization, the session cookie or an API key; Kavita requires a
// bearer token. A request without a usable credential fails with an
// AuthError before any call is made.
//
//	src, err := backend.New(cfg.Backend, cfg.UpstreamURL, httpClient, logger, tracer)
//	tags, err := src.Tags(ctx, bookID, backend.CredentialsFromHeader(r.Header))
package backend

// Package logging builds the process logger on top of log/slog.
//
// # Overview
//
//   - Structured logging in JSON or text format
//   - Redaction of upstream credentials (Komga basic auth, Kavita bearer
//     tokens and apiKey query parameters, cookies)
//   - request_id attached automatically when the context carries one
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Logging))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "forwarding",
//	    "authorization", r.Header.Get("Authorization"), // logged as "Basic ***"
//	    "path", "/api/image?apiKey=abc",                // logged as "/api/image?apiKey=***"
//	)
package logging

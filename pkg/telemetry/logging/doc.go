// Package logging builds the process logger on top of log/slog.
//
// # Overview
//
// The logging package provides:
//   - JSON or text output through the standard slog handlers
//   - A runtime-adjustable level (SetLevel), used by config hot reload
//   - Secret redaction for upstream credentials and bearer tokens
//   - Request-scoped fields carried on the context
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Logger)
//
//	slog.Info("session created", "key", logging.KeyPrefix(credential))
//
// # Credentials
//
// Credentials are never logged in full. KeyPrefix keeps at most ten leading
// characters and never more than half of the key. With RedactSecrets enabled,
// sk- style keys and bearer tokens appearing in any string attribute are masked
// as well.
package logging

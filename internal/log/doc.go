// Package log provides slog-based logging that masks secrets before they
// reach the output.
//
// Monitor runs log target URLs, tool command lines and notifier errors.
// Any of these may carry a credential: a chat webhook URL embeds its token
// in the path, and monitored endpoints sometimes carry access tokens in the
// query string. The SecureHandler rewrites such values:
//   - attributes whose key names a secret (webhook, token, authorization)
//   - webhook URLs appearing anywhere in a string or error value
//   - query parameters named like credentials (token, key, sig, ...)
//   - bearer tokens and JWTs
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("notification failed",
//	    "target", "https://example.com/app.js",
//	    "error", err, // webhook URLs inside err are masked
//	)
package log

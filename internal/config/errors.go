package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidKind is returned for an unknown monitor kind.
	ErrInvalidKind = errors.New("invalid monitor kind")

	// ErrNoWebhook is returned when no webhook is configured outside dry-run mode.
	ErrNoWebhook = errors.New("no webhook configured: set --webhook, CHANGEMON_WEBHOOK or use --dry-run")

	// ErrInvalidWebhook is returned when the webhook is not an http(s) URL.
	ErrInvalidWebhook = errors.New("invalid webhook: must be an http(s) URL")

	// ErrNoTargetsDir is returned when the targets directory is empty.
	ErrNoTargetsDir = errors.New("no targets directory specified")

	// ErrNoStateDir is returned when the state directory is empty.
	ErrNoStateDir = errors.New("no state directory specified")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRetention is returned when the retention is negative.
	ErrInvalidRetention = errors.New("invalid retention: must be non-negative")

	// ErrInvalidInterval is returned when the interval is negative.
	ErrInvalidInterval = errors.New("invalid interval: must be non-negative")

	// ErrWatchWithoutInterval is returned when --watch is used without --every.
	ErrWatchWithoutInterval = errors.New("--watch requires --every")

	// ErrInvalidSummaryFormat is returned for an unknown summary format.
	ErrInvalidSummaryFormat = errors.New("invalid summary format: must be text, markdown or json")

	// ErrInvalidAlgorithm is returned for an unknown fingerprint algorithm.
	ErrInvalidAlgorithm = errors.New("invalid fingerprint algorithm")

	// ErrNoSources is returned when the set kind has no enumeration source.
	ErrNoSources = errors.New("no subdomain sources: configure tools or enable crt.sh")
)

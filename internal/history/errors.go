package history

import "errors"

var (
	// ErrStoreCorrupt is returned when a state file exists but cannot be
	// read or parsed. It is fatal for a run: continuing with an empty
	// history would re-enroll every target and flood the notifier.
	ErrStoreCorrupt = errors.New("history store is corrupt")

	// ErrPayloadNotFound is returned when no payload is stored for a fingerprint.
	ErrPayloadNotFound = errors.New("payload not found")

	// ErrInvalidFingerprint is returned when a fingerprint is malformed.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
)

package model

import "time"

// Artifact is a rendered file attached to a notification: the HTML diff
// for the bytes kind or the HTML report for the set kind.
type Artifact struct {
	// Name is the attachment file name presented to the receiver.
	Name string `json:"name"`

	// ContentType is the MIME type of Data.
	ContentType string `json:"content_type"`

	// Data is the artifact content.
	Data []byte `json:"-"`

	// Path is where the artifact was written on disk, if anywhere.
	Path string `json:"path,omitempty"`
}

// ChangeEvent is emitted when a newly computed snapshot differs from the
// stored one. It is built during comparison, consumed once by a Notifier,
// and then discarded; only its effect on the history store is durable.
type ChangeEvent struct {
	// Target is the monitored resource.
	Target Target `json:"target"`

	// Kind is the monitor kind that produced the event.
	Kind Kind `json:"kind"`

	// FirstObservation is true when no previous record existed.
	FirstObservation bool `json:"first_observation"`

	// Previous is the previous fingerprint (bytes kind). Empty on first observation.
	Previous Fingerprint `json:"previous,omitempty"`

	// Current is the new fingerprint (bytes kind).
	Current Fingerprint `json:"current,omitempty"`

	// PreviousSize is the previous body length in bytes (bytes kind).
	PreviousSize int `json:"previous_size,omitempty"`

	// CurrentSize is the new body length in bytes (bytes kind).
	CurrentSize int `json:"current_size,omitempty"`

	// LinesAdded and LinesRemoved summarize the line diff (bytes kind).
	LinesAdded   int `json:"lines_added,omitempty"`
	LinesRemoved int `json:"lines_removed,omitempty"`

	// Added lists members new in the current set, sorted (set kind).
	Added []string `json:"added,omitempty"`

	// Removed lists members gone from the current set, sorted (set kind).
	Removed []string `json:"removed,omitempty"`

	// Total is the member count of the current set (set kind).
	Total int `json:"total,omitempty"`

	// Artifact is the rendered diff or report. Nil when rendering was skipped.
	Artifact *Artifact `json:"artifact,omitempty"`

	// DetectedAt is when the change was detected.
	DetectedAt time.Time `json:"detected_at"`
}

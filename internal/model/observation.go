package model

import (
	"fmt"
	"time"
)

// State is a step of the per-target state machine. One pass over a target
// walks FETCHED, COMPARED, then either UNCHANGED or CHANGED, DIFFED,
// PERSISTED, NOTIFIED. Any step may end in FAILED instead.
type State int

const (
	// StatePending is the initial state before collection.
	StatePending State = iota
	// StateFetched means a snapshot was collected.
	StateFetched
	// StateCompared means the snapshot was compared against history.
	StateCompared
	// StateUnchanged is terminal: the snapshot matches the stored identity.
	StateUnchanged
	// StateChanged means the snapshot differs from history (or is the first).
	StateChanged
	// StateDiffed means the delta and its artifact were computed.
	StateDiffed
	// StatePersisted means the new identity was committed to history.
	StatePersisted
	// StateNotified is terminal: the change event was delivered.
	StateNotified
	// StateFailed is terminal: collection, comparison or persistence failed.
	StateFailed
)

var stateNames = map[State]string{
	StatePending:   "PENDING",
	StateFetched:   "FETCHED",
	StateCompared:  "COMPARED",
	StateUnchanged: "UNCHANGED",
	StateChanged:   "CHANGED",
	StateDiffed:    "DIFFED",
	StatePersisted: "PERSISTED",
	StateNotified:  "NOTIFIED",
	StateFailed:    "FAILED",
}

// String returns the upper-case state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// transitions lists the legal successors of each state.
// StateFailed is reachable from every non-terminal state and is handled in Fail.
var transitions = map[State][]State{
	StatePending:   {StateFetched},
	StateFetched:   {StateCompared},
	StateCompared:  {StateUnchanged, StateChanged},
	StateChanged:   {StateDiffed},
	StateDiffed:    {StatePersisted},
	StatePersisted: {StateNotified},
}

// Observation carries one target through one pass of the pipeline.
// It is owned by a single goroutine for its whole lifetime.
type Observation struct {
	// Target is the monitored resource.
	Target Target

	// Kind is the monitor kind.
	Kind Kind

	// State is the current state machine position.
	State State

	// Snapshot is the collected snapshot, set when State >= StateFetched.
	Snapshot Snapshot

	// Fingerprint is the content identity of a ByteSnapshot.
	Fingerprint Fingerprint

	// Event is the change event, set once a change is detected.
	Event *ChangeEvent

	// Notify reports whether Event must be delivered to the Notifier.
	// The bytes kind never notifies on first observation; the set kind
	// does whenever the first observation has members.
	Notify bool

	// Err is the error that moved the observation to StateFailed.
	Err error

	// NotifyErr is the delivery error, if the notification failed.
	// The history is already persisted when this is set.
	NotifyErr error

	// StartedAt and FinishedAt bound the processing of this target.
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewObservation creates a pending observation for target.
func NewObservation(target Target, kind Kind) *Observation {
	return &Observation{
		Target:    target,
		Kind:      kind,
		State:     StatePending,
		StartedAt: time.Now(),
	}
}

// Advance moves the observation to next, rejecting illegal transitions.
func (o *Observation) Advance(next State) error {
	for _, allowed := range transitions[o.State] {
		if allowed == next {
			o.State = next
			return nil
		}
	}
	return fmt.Errorf("illegal state transition %s -> %s for %s", o.State, next, o.Target)
}

// Fail records err and moves the observation to StateFailed.
// Failing an observation that is already terminal keeps the first error.
func (o *Observation) Fail(err error) {
	if o.Terminal() {
		return
	}
	o.State = StateFailed
	o.Err = err
}

// Terminal reports whether no further step may run.
func (o *Observation) Terminal() bool {
	switch o.State {
	case StateUnchanged, StateNotified, StateFailed:
		return true
	default:
		return false
	}
}

// Finish stamps the completion time.
func (o *Observation) Finish() {
	o.FinishedAt = time.Now()
}

// Duration returns how long the observation took.
func (o *Observation) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// Notified reports whether the change event was delivered.
func (o *Observation) Notified() bool {
	return o.State == StateNotified
}

// Outcome summarizes the terminal result of an observation.
func (o *Observation) Outcome() Outcome {
	switch {
	case o.State == StateFailed:
		return OutcomeFailed
	case o.State == StateUnchanged:
		return OutcomeUnchanged
	case o.Event != nil && o.Event.FirstObservation:
		return OutcomeEnrolled
	case o.Event != nil:
		return OutcomeChanged
	default:
		return OutcomeUnknown
	}
}

// Outcome is the user-facing result of processing one target.
type Outcome string

const (
	// OutcomeUnchanged means nothing changed; nothing was written or sent.
	OutcomeUnchanged Outcome = "UNCHANGED"
	// OutcomeEnrolled means the target was observed for the first time.
	OutcomeEnrolled Outcome = "ENROLLED"
	// OutcomeChanged means a change was detected and persisted.
	OutcomeChanged Outcome = "CHANGED"
	// OutcomeFailed means the target could not be processed this run.
	OutcomeFailed Outcome = "FAILED"
	// OutcomeInvalid means the target failed syntax validation.
	OutcomeInvalid Outcome = "INVALID"
	// OutcomeUnknown means the observation never reached a terminal state.
	OutcomeUnknown Outcome = "UNKNOWN"
)

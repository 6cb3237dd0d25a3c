package model

import "time"

// TargetResult is the reportable result of one target in a run.
type TargetResult struct {
	Target      Target        `json:"target"`
	Outcome     Outcome       `json:"outcome"`
	Identity    string        `json:"identity,omitempty"`
	Size        int           `json:"size"`
	Added       int           `json:"added,omitempty"`
	Removed     int           `json:"removed,omitempty"`
	Notified    bool          `json:"notified"`
	Error       string        `json:"error,omitempty"`
	NotifyError string        `json:"notify_error,omitempty"`
	Artifact    string        `json:"artifact,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// RunSummary is the outcome of one pass over all targets of a kind.
type RunSummary struct {
	Kind       Kind           `json:"kind"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []TargetResult `json:"results"`
}

// NewRunSummary creates an empty summary for kind.
func NewRunSummary(kind Kind) *RunSummary {
	return &RunSummary{
		Kind:      kind,
		StartedAt: time.Now(),
		Results:   make([]TargetResult, 0),
	}
}

// AddObservation appends the result of a finished observation.
func (s *RunSummary) AddObservation(o *Observation) {
	r := TargetResult{
		Target:   o.Target,
		Outcome:  o.Outcome(),
		Notified: o.Notified(),
		Duration: o.Duration(),
	}
	if o.Snapshot != nil {
		r.Size = o.Snapshot.Size()
	}
	if o.Fingerprint != "" {
		r.Identity = o.Fingerprint.String()
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	if o.NotifyErr != nil {
		r.NotifyError = o.NotifyErr.Error()
	}
	if o.Event != nil {
		r.Added = len(o.Event.Added)
		r.Removed = len(o.Event.Removed)
		if o.Event.Kind == KindBytes {
			r.Added = o.Event.LinesAdded
			r.Removed = o.Event.LinesRemoved
		}
		if o.Event.Artifact != nil {
			r.Artifact = o.Event.Artifact.Path
		}
	}
	s.Results = append(s.Results, r)
}

// AddInvalid appends a target that failed validation.
func (s *RunSummary) AddInvalid(raw string, err error) {
	s.Results = append(s.Results, TargetResult{
		Target:  Target(raw),
		Outcome: OutcomeInvalid,
		Error:   err.Error(),
	})
}

// Count returns the number of results with the given outcome.
func (s *RunSummary) Count(outcome Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

// NotifiedCount returns how many notifications were delivered.
func (s *RunSummary) NotifiedCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Notified {
			n++
		}
	}
	return n
}

// Finish stamps the completion time.
func (s *RunSummary) Finish() {
	s.FinishedAt = time.Now()
}

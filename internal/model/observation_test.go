package model

import (
	"errors"
	"testing"
)

// TestObservationAdvance tests the state machine transitions.
func TestObservationAdvance(t *testing.T) {
	t.Parallel()

	t.Run("walks the changed path", func(t *testing.T) {
		t.Parallel()

		o := NewObservation("https://example.com/app.js", KindBytes)
		for _, next := range []State{StateFetched, StateCompared, StateChanged, StateDiffed, StatePersisted, StateNotified} {
			if err := o.Advance(next); err != nil {
				t.Fatalf("unexpected error advancing to %s: %v", next, err)
			}
		}
		if !o.Terminal() {
			t.Error("expected NOTIFIED to be terminal")
		}
		if !o.Notified() {
			t.Error("expected observation to be notified")
		}
	})

	t.Run("walks the unchanged path", func(t *testing.T) {
		t.Parallel()

		o := NewObservation("example.com", KindSet)
		for _, next := range []State{StateFetched, StateCompared, StateUnchanged} {
			if err := o.Advance(next); err != nil {
				t.Fatalf("unexpected error advancing to %s: %v", next, err)
			}
		}
		if o.Outcome() != OutcomeUnchanged {
			t.Errorf("expected UNCHANGED outcome, got %s", o.Outcome())
		}
	})

	t.Run("rejects skipping states", func(t *testing.T) {
		t.Parallel()

		o := NewObservation("example.com", KindSet)
		if err := o.Advance(StatePersisted); err == nil {
			t.Error("expected error for PENDING -> PERSISTED")
		}
		if o.State != StatePending {
			t.Errorf("expected state to stay PENDING, got %s", o.State)
		}
	})
}

// TestObservationFail tests failure handling.
func TestObservationFail(t *testing.T) {
	t.Parallel()

	first := errors.New("connection refused")
	o := NewObservation("https://example.com/app.js", KindBytes)
	o.Fail(first)
	o.Fail(errors.New("second"))

	if o.State != StateFailed {
		t.Errorf("expected FAILED, got %s", o.State)
	}
	if !errors.Is(o.Err, first) {
		t.Errorf("expected first error to be kept, got %v", o.Err)
	}
	if o.Outcome() != OutcomeFailed {
		t.Errorf("expected FAILED outcome, got %s", o.Outcome())
	}
}

// TestObservationOutcome tests outcome derivation for changed targets.
func TestObservationOutcome(t *testing.T) {
	t.Parallel()

	t.Run("first observation is enrolled", func(t *testing.T) {
		t.Parallel()

		o := NewObservation("example.com", KindSet)
		o.State = StatePersisted
		o.Event = &ChangeEvent{FirstObservation: true}
		if o.Outcome() != OutcomeEnrolled {
			t.Errorf("expected ENROLLED, got %s", o.Outcome())
		}
	})

	t.Run("later change is changed", func(t *testing.T) {
		t.Parallel()

		o := NewObservation("example.com", KindSet)
		o.State = StateNotified
		o.Event = &ChangeEvent{}
		if o.Outcome() != OutcomeChanged {
			t.Errorf("expected CHANGED, got %s", o.Outcome())
		}
	})
}

// TestRunSummary tests result aggregation.
func TestRunSummary(t *testing.T) {
	t.Parallel()

	s := NewRunSummary(KindSet)

	changed := NewObservation("example.com", KindSet)
	changed.State = StateNotified
	changed.Event = &ChangeEvent{Kind: KindSet, Added: []string{"a.example.com"}, Removed: []string{"b.example.com", "c.example.com"}}
	s.AddObservation(changed)

	failed := NewObservation("example.org", KindSet)
	failed.Fail(errors.New("boom"))
	s.AddObservation(failed)

	s.AddInvalid("not a domain", errors.New("invalid"))
	s.Finish()

	if s.Count(OutcomeChanged) != 1 || s.Count(OutcomeFailed) != 1 || s.Count(OutcomeInvalid) != 1 {
		t.Errorf("unexpected counts: %+v", s.Results)
	}
	if s.NotifiedCount() != 1 {
		t.Errorf("expected 1 notification, got %d", s.NotifiedCount())
	}
	if s.Results[0].Added != 1 || s.Results[0].Removed != 2 {
		t.Errorf("expected added=1 removed=2, got %+v", s.Results[0])
	}
	if s.Results[1].Error != "boom" {
		t.Errorf("expected error to be recorded, got %q", s.Results[1].Error)
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/changemon/internal/collector"
	"github.com/nao1215/changemon/internal/fingerprint"
	"github.com/nao1215/changemon/internal/model"
	"github.com/nao1215/changemon/internal/notify"
)

// DefaultTimeout bounds one Collect call.
const DefaultTimeout = 2 * time.Minute

// CollectStep captures a snapshot of the target and, for byte snapshots,
// computes its fingerprint.
type CollectStep struct {
	collector collector.Collector
	timeout   time.Duration
	algorithm fingerprint.Algorithm
}

// NewCollectStep creates a collect step. A non-positive timeout uses
// DefaultTimeout.
func NewCollectStep(c collector.Collector, timeout time.Duration, algorithm fingerprint.Algorithm) *CollectStep {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if algorithm == "" {
		algorithm = fingerprint.Default
	}
	return &CollectStep{collector: c, timeout: timeout, algorithm: algorithm}
}

// Name returns the step name.
func (s *CollectStep) Name() string {
	return "collect"
}

// Do executes the collect step.
func (s *CollectStep) Do(ctx context.Context, obs *model.Observation) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.collector.Collect(ctx, obs.Target)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: timed out after %s: %w", collector.ErrCollect, s.timeout, err)
		}
		return err
	}
	if snap == nil || snap.Kind() != obs.Kind {
		return fmt.Errorf("%w: %s returned no %s snapshot", collector.ErrCollect, s.collector.Name(), obs.Kind)
	}

	obs.Snapshot = snap
	if b, ok := snap.(*model.ByteSnapshot); ok {
		obs.Fingerprint = s.algorithm.Sum(b.Body)
	}
	return obs.Advance(model.StateFetched)
}

// CompareStep decides whether the snapshot differs from history.
type CompareStep struct {
	ledger Ledger
}

// NewCompareStep creates a compare step.
func NewCompareStep(ledger Ledger) *CompareStep {
	return &CompareStep{ledger: ledger}
}

// Name returns the step name.
func (s *CompareStep) Name() string {
	return "compare"
}

// Do executes the compare step.
func (s *CompareStep) Do(_ context.Context, obs *model.Observation) error {
	changed, err := s.ledger.Changed(obs)
	if err != nil {
		return err
	}
	if err := obs.Advance(model.StateCompared); err != nil {
		return err
	}
	if !changed {
		return obs.Advance(model.StateUnchanged)
	}
	return obs.Advance(model.StateChanged)
}

// DiffStep builds the change event and its artifact.
type DiffStep struct {
	ledger Ledger
}

// NewDiffStep creates a diff step.
func NewDiffStep(ledger Ledger) *DiffStep {
	return &DiffStep{ledger: ledger}
}

// Name returns the step name.
func (s *DiffStep) Name() string {
	return "diff"
}

// Do executes the diff step.
func (s *DiffStep) Do(_ context.Context, obs *model.Observation) error {
	if err := s.ledger.Describe(obs); err != nil {
		return err
	}
	if obs.Event == nil {
		return fmt.Errorf("no change event built for %s", obs.Target)
	}
	return obs.Advance(model.StateDiffed)
}

// PersistStep commits the new identity to history.
type PersistStep struct {
	ledger Ledger
}

// NewPersistStep creates a persist step.
func NewPersistStep(ledger Ledger) *PersistStep {
	return &PersistStep{ledger: ledger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persist step.
func (s *PersistStep) Do(_ context.Context, obs *model.Observation) error {
	if err := s.ledger.Commit(obs); err != nil {
		return err
	}
	return obs.Advance(model.StatePersisted)
}

// NotifyStep delivers the change event. Delivery failures are recorded
// on the observation and never fail it: the history is already committed.
type NotifyStep struct {
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewNotifyStep creates a notify step.
func NewNotifyStep(n notify.Notifier, logger *slog.Logger) *NotifyStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyStep{notifier: n, logger: logger}
}

// Name returns the step name.
func (s *NotifyStep) Name() string {
	return "notify"
}

// Do executes the notify step.
func (s *NotifyStep) Do(ctx context.Context, obs *model.Observation) error {
	if !obs.Notify {
		s.logger.Info("change recorded without notification",
			"target", obs.Target,
			"first_observation", obs.Event.FirstObservation,
		)
		return nil
	}

	if err := s.notifier.Notify(ctx, obs.Event); err != nil {
		s.logger.Error("notification failed",
			"target", obs.Target,
			"error", err,
		)
		obs.NotifyErr = err
		return nil
	}
	return obs.Advance(model.StateNotified)
}

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/changemon/internal/collector"
	"github.com/nao1215/changemon/internal/fingerprint"
	"github.com/nao1215/changemon/internal/model"
	"github.com/nao1215/changemon/internal/notify"
	"github.com/nao1215/changemon/internal/targets"
)

// Recorder journals the result of every processed target.
type Recorder interface {
	Record(ctx context.Context, kind model.Kind, result model.TargetResult) error
}

// Monitor runs all targets of one kind through the pipeline.
type Monitor struct {
	kind      model.Kind
	collector collector.Collector
	ledger    Ledger
	notifier  notify.Notifier

	concurrency int
	timeout     time.Duration
	algorithm   fingerprint.Algorithm
	recorder    Recorder
	logger      *slog.Logger
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorConcurrency bounds how many targets run at once.
func WithMonitorConcurrency(n int) MonitorOption {
	return func(m *Monitor) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithTimeout bounds each Collect call.
func WithTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithAlgorithm selects the fingerprint digest.
func WithAlgorithm(a fingerprint.Algorithm) MonitorOption {
	return func(m *Monitor) {
		if a != "" {
			m.algorithm = a
		}
	}
}

// WithRecorder journals every result.
func WithRecorder(r Recorder) MonitorOption {
	return func(m *Monitor) {
		m.recorder = r
	}
}

// WithMonitorLogger sets a custom logger.
func WithMonitorLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMonitor creates a Monitor of kind.
func NewMonitor(kind model.Kind, c collector.Collector, ledger Ledger, n notify.Notifier, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		kind:        kind,
		collector:   c,
		ledger:      ledger,
		notifier:    n,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		algorithm:   fingerprint.Default,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Kind returns the monitor kind.
func (m *Monitor) Kind() model.Kind {
	return m.kind
}

// Pipeline builds the per-target pipeline.
func (m *Monitor) Pipeline() *Pipeline {
	p := New(WithLogger(m.logger))
	p.AddSteps(
		NewCollectStep(m.collector, m.timeout, m.algorithm),
		NewCompareStep(m.ledger),
		NewDiffStep(m.ledger),
		NewPersistStep(m.ledger),
		NewNotifyStep(m.notifier, m.logger),
	)
	return p
}

// Run processes every target of list once. Rejected targets are reported
// as INVALID. Per-target failures never abort the run; the returned error
// is only set when ctx was cancelled before all targets started.
func (m *Monitor) Run(ctx context.Context, list *targets.List) (*model.RunSummary, error) {
	summary := model.NewRunSummary(m.kind)
	defer summary.Finish()

	for _, r := range list.Rejected {
		m.logger.Warn("skipping invalid target",
			"target", r.Raw,
			"file", r.File,
			"line", r.Line,
			"error", r.Err,
		)
		summary.AddInvalid(r.Raw, r.Err)
	}

	bp := NewBatchProcessor(m.kind, m.Pipeline,
		WithConcurrency(m.concurrency),
		WithBatchLogger(m.logger),
	)
	observations, err := bp.ProcessBatch(ctx, list.Targets)

	for _, obs := range observations {
		if obs == nil {
			continue
		}
		summary.AddObservation(obs)
		if m.recorder == nil {
			continue
		}
		result := summary.Results[len(summary.Results)-1]
		// The journal outlives a cancelled run context.
		if rerr := m.recorder.Record(context.WithoutCancel(ctx), m.kind, result); rerr != nil {
			m.logger.Warn("failed to journal result", "target", obs.Target, "error", rerr)
		}
	}
	return summary, err
}

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/changemon/internal/model"
)

// DefaultConcurrency is the number of targets processed at once.
const DefaultConcurrency = 10

// BatchProcessor runs one pipeline per target with bounded concurrency.
// A target failure is recorded on its observation and never stops the
// other targets.
type BatchProcessor struct {
	kind model.Kind

	// pipelineFactory creates a fresh pipeline for each target.
	pipelineFactory func() *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent targets.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor for targets of kind.
func NewBatchProcessor(kind model.Kind, pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		kind:            kind,
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch processes all targets and returns their observations in
// input order. Targets not started because ctx was cancelled are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []model.Target) ([]*model.Observation, error) {
	results := make([]*model.Observation, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(obs *model.Observation, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = obs
	})
	return results, err
}

// ProcessBatchWithCallback processes all targets and calls callback for
// each finished observation from the goroutine that processed it.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []model.Target,
	callback func(obs *model.Observation, index int),
) error {
	bp.logger.Info("starting batch",
		"kind", bp.kind,
		"targets", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			obs := model.NewObservation(target, bp.kind)
			if err := bp.pipelineFactory().Execute(ctx, obs); err != nil {
				bp.logger.Warn("target failed",
					"target", target,
					"state", obs.State,
					"error", err,
				)
			}

			callback(obs, i)
			// Per-target errors stay on the observation.
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch complete",
		"kind", bp.kind,
		"targets", len(targets),
		"elapsed", time.Since(startTime),
	)
	return err
}

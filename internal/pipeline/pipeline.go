package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/changemon/internal/model"
)

// Step is one stage of the per-target pipeline.
type Step interface {
	// Do executes the step. A returned error moves the observation to
	// StateFailed and stops the pipeline.
	Do(ctx context.Context, obs *model.Observation) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order on one observation.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps until the observation reaches a terminal state
// or a step fails. The observation records the failure; the returned
// error is the same value for callers that want it.
func (p *Pipeline) Execute(ctx context.Context, obs *model.Observation) error {
	defer obs.Finish()

	for _, step := range p.steps {
		if obs.Terminal() {
			break
		}

		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"target", obs.Target,
				"reason", ctx.Err(),
			)
			obs.Fail(ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"target", obs.Target,
		)

		if err := step.Do(ctx, obs); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"target", obs.Target,
				"error", err,
			)
			obs.Fail(err)
			return err
		}
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

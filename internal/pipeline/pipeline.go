package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/flatparser/internal/table"
)

// Step is one transform applied to a store.
//
// Design decision: Steps mutate the store in place rather than returning a
// new one because:
//  1. A store holds the whole input file and copying it per step doubles memory
//  2. Column bookkeeping (Columns.Add/Remove) stays with the rows it describes
//  3. Cleaner rules and the binarizer already work row by row
type Step interface {
	// Apply rewrites the store in place.
	Apply(ctx context.Context, store *table.Store) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order over one store.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps running later steps after a failure.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError makes Execute run every step and return the joined
// errors instead of stopping at the first one.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
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

// Execute applies all steps to store in sequence. Cancellation is checked
// between steps. Each error is wrapped with the failing step's name.
//
// Design decision: Cancellation is checked only between steps, not inside
// them. A step that was started runs to completion (steps check ctx on entry
// and are short in-memory passes), so the store is never left half rewritten
// by one step. With WithContinueOnError the errors of all failed steps are
// joined so the caller sees every failure at once; a cancellation ends the
// loop regardless and is joined after them.
func (p *Pipeline) Execute(ctx context.Context, store *table.Store) error {
	var errs []error

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return errors.Join(append(errs, ctx.Err())...)
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"rows", store.Len(),
			"columns", store.Columns.Len(),
		)

		if err := step.Apply(ctx, store); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", err,
			)
			err = fmt.Errorf("%s: %w", step.Name(), err)
			if !p.continueOnError {
				return err
			}
			errs = append(errs, err)
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"columns", store.Columns.Len(),
		)
	}

	return errors.Join(errs...)
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

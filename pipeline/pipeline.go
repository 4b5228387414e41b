package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmigrate/tmig/result"
)

// Options selects a pipeline's execution policy.
type Options struct {
	// Concurrent starts every non-skipped step together instead of running
	// them in order.
	Concurrent bool

	// FailFast stops a sequential pipeline from starting further steps once
	// a step ends in a terminal error. Concurrent steps have all started by
	// the time an error can be observed, so they always run to completion.
	FailFast bool
}

// Pipeline is an ordered list of steps run under one result node.
// It implements Step, so pipelines nest.
type Pipeline struct {
	name    string
	options Options
	steps   []Step
}

// New constructs a Pipeline.
func New(name string, options Options, steps ...Step) *Pipeline {
	return &Pipeline{
		name:    name,
		options: options,
		steps:   append([]Step{}, steps...),
	}
}

// Name implements Step.
func (p *Pipeline) Name() string { return p.name }

// Run executes the pipeline's steps, attaches the pipeline's node to
// env.Parent, and returns the aggregated operational error, if any.
// Validation failures are reflected in the node's terminal status, not the
// returned error.
func (p *Pipeline) Run(ctx context.Context, env Env) error {
	node := result.New(result.SourcePipeline, result.Options{Name: p.name})

	stepEnv := env
	stepEnv.Parent = node
	stepEnv.Namespace = env.childNamespace(p.name)

	var errs []error
	if p.options.Concurrent {
		errs = p.runConcurrent(ctx, stepEnv)
	} else {
		errs = p.runSequential(ctx, stepEnv)
	}

	p.terminalize(node, errs)

	if env.Parent != nil {
		if err := env.Parent.AddChild(node); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("pipeline %s: %w", p.name, joinErrors(errs))
	}
	return nil
}

// runSequential runs steps in order; step n+1 never starts before step n's
// node is terminal.
func (p *Pipeline) runSequential(ctx context.Context, env Env) []error {
	var errs []error
	for _, step := range p.steps {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("step %s not started: %w", step.Name(), ctx.Err()))
			break
		}
		if skipped(ctx, step) {
			continue
		}
		if err := step.Run(ctx, env); err != nil {
			errs = append(errs, err)
			if p.options.FailFast {
				break
			}
		}
	}
	return errs
}

// runConcurrent starts every non-skipped step together and waits for all of
// them, collecting every error.
func (p *Pipeline) runConcurrent(ctx context.Context, env Env) []error {
	var wg sync.WaitGroup
	errChan := make(chan error, len(p.steps))

	for _, step := range p.steps {
		if skipped(ctx, step) {
			continue
		}
		wg.Add(1)
		go func(step Step) {
			defer wg.Done()
			if err := step.Run(ctx, env); err != nil {
				errChan <- err
			}
		}(step)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return errs
}

// terminalize settles the pipeline node from its children's outcomes.
func (p *Pipeline) terminalize(node *result.Node, errs []error) {
	var failed, errored int
	for _, child := range node.Children() {
		switch child.Status() {
		case result.StatusError:
			errored++
		case result.StatusFailure:
			failed++
		}
	}
	if len(errs) > errored {
		errored = len(errs)
	}

	switch {
	case errored > 0:
		_ = node.Error(fmt.Errorf("%d of %d step(s) errored", errored, len(p.steps)))
	case failed > 0:
		_ = node.Failure(fmt.Errorf("%d step(s) reported validation failures", failed))
	default:
		_ = node.Success()
	}
}

func skipped(ctx context.Context, step Step) bool {
	c, ok := step.(conditional)
	return ok && c.Skip(ctx)
}

// joinErrors combines step errors into one error, preserving arrival order.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	return fmt.Errorf("%d step error(s):\n  - %s", len(errs), strings.Join(messages, "\n  - "))
}

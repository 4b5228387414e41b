package pipeline

import (
	"context"
	"time"

	"github.com/tmigrate/tmig/progress"
	"github.com/tmigrate/tmig/result"
	"github.com/tmigrate/tmig/task"
)

// Env carries the execution surroundings a pipeline hands to each step.
type Env struct {
	// Parent is the node new step nodes attach to.
	Parent *result.Node

	// Observer receives every step's status stream. May be nil for headless
	// runs.
	Observer progress.Observer

	// Interval is the heartbeat interval for step tasks.
	Interval time.Duration

	// Namespace scopes step task names, e.g. "extract".
	Namespace string
}

func (e Env) childNamespace(name string) string {
	if e.Namespace == "" {
		return name
	}
	return e.Namespace + ":" + name
}

// Step is one unit of a pipeline. Pipelines are Steps themselves, which is
// how sub-pipelines nest.
type Step interface {
	Name() string
	Run(ctx context.Context, env Env) error
}

// conditional is implemented by steps with a runtime skip predicate.
type conditional interface {
	Skip(ctx context.Context) bool
}

// StepFunc adapts plain functions into Steps.
type StepFunc struct {
	// StepName labels the step.
	StepName string

	// SkipWhen, when non-nil and true at run time, omits the step entirely.
	SkipWhen func(ctx context.Context) bool

	// Work is the step body. It is responsible for attaching any result
	// nodes to env.Parent; the Do and Validate constructors handle that via
	// the task wrapper.
	Work func(ctx context.Context, env Env) error
}

// Name implements Step.
func (s StepFunc) Name() string { return s.StepName }

// Skip implements the optional skip predicate.
func (s StepFunc) Skip(ctx context.Context) bool {
	return s.SkipWhen != nil && s.SkipWhen(ctx)
}

// Run implements Step.
func (s StepFunc) Run(ctx context.Context, env Env) error {
	return s.Work(ctx, env)
}

// Do wraps work in a task so the step gets a result node, heartbeat
// progress, and the finalize protocol. The work's error becomes the step's
// terminal error.
func Do(name string, work func(ctx context.Context) error) Step {
	return StepFunc{
		StepName: name,
		Work: func(ctx context.Context, env Env) error {
			t := task.Begin(task.Options{
				Namespace: env.childNamespace(name),
				Name:      name,
				Parent:    env.Parent,
				Observer:  env.Observer,
				Interval:  env.Interval,
			})
			if err := work(ctx); err != nil {
				return t.Finalize(err)
			}
			return t.Finalize(nil)
		},
	}
}

// DoIf is Do with a skip predicate.
func DoIf(name string, skipWhen func(ctx context.Context) bool, work func(ctx context.Context) error) Step {
	step := Do(name, work).(StepFunc)
	step.SkipWhen = skipWhen
	return step
}

// Validate wraps a check whose failure is a structured validation outcome
// rather than an operational error. A non-nil check error finalizes the
// step's node as a failure with a validation child attached, and the step
// itself returns nil so sibling steps keep running; the failure surfaces in
// the pipeline's aggregate status.
func Validate(name string, check func(ctx context.Context) error) Step {
	return StepFunc{
		StepName: name,
		Work: func(ctx context.Context, env Env) error {
			t := task.Begin(task.Options{
				Namespace: env.childNamespace(name),
				Name:      name,
				Parent:    env.Parent,
				Observer:  env.Observer,
				Interval:  env.Interval,
				Source:    result.SourceValidation,
			})
			checkErr := check(ctx)
			if checkErr == nil {
				return t.Finalize(nil)
			}
			child := result.New(result.SourceValidation, result.Options{Name: name})
			_ = child.Failure(checkErr)
			_ = t.Finalize(child)
			return nil
		},
	}
}

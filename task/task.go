package task

import (
	"fmt"
	"time"

	"github.com/tmigrate/tmig/progress"
	"github.com/tmigrate/tmig/result"
)

// Options configures Begin.
type Options struct {
	// Namespace scopes the task for logs and wrapped errors,
	// e.g. "extract:retrieve-metadata". Defaults to Name.
	Namespace string

	// Name labels the task's result node.
	Name string

	// Message is the initial status line and the heartbeat text.
	// Defaults to Name.
	Message string

	// Interval is the heartbeat interval; non-positive selects
	// progress.DefaultInterval.
	Interval time.Duration

	// Parent, when non-nil, receives the task's node as a child during
	// Finalize.
	Parent *result.Node

	// Observer, when non-nil, receives the live status stream. A nil
	// Observer runs the task headless; failures are then only visible in
	// Finalize's return value.
	Observer progress.Observer

	// Source overrides the node's source type tag. Defaults to
	// result.SourceStep.
	Source result.SourceType
}

// Task is one running unit of work under the finalize protocol.
type Task struct {
	node      *result.Node
	parent    *result.Node
	observer  progress.Observer
	notifier  *progress.Handle
	namespace string
}

// Begin creates the task's result node, publishes the initial status line,
// and starts the heartbeat notifier.
func Begin(opts Options) *Task {
	name := opts.Name
	if name == "" {
		name = "task"
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = name
	}
	message := opts.Message
	if message == "" {
		message = name
	}
	source := opts.Source
	if source == "" {
		source = result.SourceStep
	}

	node := result.New(source, result.Options{Name: name})
	node.SetDetail("namespace", namespace)

	if opts.Observer != nil {
		opts.Observer.Next(message)
	}

	return &Task{
		node:      node,
		parent:    opts.Parent,
		observer:  opts.Observer,
		notifier:  progress.Start(message, opts.Interval, node, opts.Observer),
		namespace: namespace,
	}
}

// Node returns the task's result node.
func (t *Task) Node() *result.Node {
	return t.node
}

// Finalize ends the task with the given outcome and runs the completion
// protocol described in the package documentation.
//
// The returned error is nil on success, the namespace-wrapped operational
// error on failure, and an ErrTerminal-wrapped error when Finalize is called
// a second time.
func (t *Task) Finalize(outcome any) error {
	progress.Finish(t.notifier)

	if t.node.IsTerminal() {
		return fmt.Errorf("%s: finalize called twice: %w", t.namespace, result.ErrTerminal)
	}

	var opErr error
	switch v := outcome.(type) {
	case nil:
		if err := t.node.Success(); err != nil {
			return fmt.Errorf("%s: %w", t.namespace, err)
		}

	case error:
		opErr = &Error{Namespace: t.namespace, Err: v}
		_ = t.node.Error(opErr)

	case *result.Node:
		if !v.IsTerminal() {
			defect := &DefectError{Namespace: t.namespace, Value: v}
			opErr = defect
			_ = t.node.Error(defect)
			break
		}
		opErr = &Error{Namespace: t.namespace, Err: v.Err()}
		// Attach before the terminal transition; AddChild is a no-op on a
		// terminal parent. Task nodes carry no bubble flags, so the failed
		// child cannot force the status before Failure records opErr.
		_ = t.node.AddChild(v)
		_ = t.node.Failure(opErr)

	default:
		defect := &DefectError{Namespace: t.namespace, Value: v}
		opErr = defect
		_ = t.node.Error(defect)
	}

	if t.parent != nil {
		if bubbleErr := t.parent.AddChild(t.node); bubbleErr != nil {
			wrapped := fmt.Errorf("%s: %w", t.namespace, bubbleErr)
			if t.observer != nil {
				t.observer.Error(wrapped)
				return opErr
			}
			return wrapped
		}
	}

	if t.observer != nil {
		if opErr == nil {
			t.observer.Complete()
		} else {
			t.observer.Error(opErr)
		}
	}
	return opErr
}

// Run executes work under a fresh task and finalizes it with the work's
// return value. It is the common path for pipeline steps whose body is a
// single function.
func Run(opts Options, work func() error) error {
	t := Begin(opts)
	if err := work(); err != nil {
		return t.Finalize(err)
	}
	return t.Finalize(nil)
}

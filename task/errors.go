package task

import "fmt"

// Error wraps an operational failure with the namespace of the task that
// observed it, so errors bubbling through nested pipelines stay attributable.
type Error struct {
	// Namespace identifies the task, e.g. "extract:retrieve-metadata".
	Namespace string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Namespace, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *Error) Unwrap() error {
	return e.Err
}

// DefectError reports a malformed call into the task framework itself, as
// opposed to a failure of the work being tracked. It is still signaled
// through the observer so a human-facing run never hangs without output.
type DefectError struct {
	// Namespace identifies the task whose caller misbehaved.
	Namespace string

	// Value is the unexpected value handed to Finalize.
	Value any
}

// Error implements the error interface.
func (e *DefectError) Error() string {
	return fmt.Sprintf("%s: finalize called with %T, want nil, error, or *result.Node", e.Namespace, e.Value)
}

package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyReady is returned when Build, Load, or Finalize is called on
	// a Machine that has already attempted a transition.
	ErrAlreadyReady = errors.New("lifecycle: object has already transitioned")

	// ErrNotReady is returned when Refresh is called on a Machine that is
	// not in the ready state.
	ErrNotReady = errors.New("lifecycle: object is not ready")

	// ErrRefreshAfterFinalize is returned when Refresh is called on a
	// Machine that transitioned via Finalize. Ad hoc finalization has no
	// replay path.
	ErrRefreshAfterFinalize = errors.New("lifecycle: finalized objects cannot be refreshed")
)

// TransitionError wraps a hook failure with the transition that observed it.
type TransitionError struct {
	// Transition names the failed transition: "build", "load", "finalize",
	// or "refresh".
	Transition string

	// Err is the hook's error.
	Err error
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("lifecycle %s failed: %v", e.Transition, e.Err)
}

// Unwrap exposes the hook's error.
func (e *TransitionError) Unwrap() error {
	return e.Err
}

package lifecycle

import (
	"context"
	"sync"
)

// Hooks is the stage-specific behavior a Machine drives. O is the options
// type for Build and Load; a stage with no options uses struct{}.
//
// Initialize resets transient stage fields. It is called once at Machine
// construction and again at the start of every Refresh. Build computes the
// stage's data fresh from collaborators; Load restores it from a previously
// saved artifact; Finalize adopts data the caller assembled ad hoc.
type Hooks[O any] interface {
	Initialize()
	Build(ctx context.Context, opts O) error
	Load(ctx context.Context, opts O) error
	Finalize(ctx context.Context) error
}

// Option configures a Machine.
type Option func(*settings)

type settings struct {
	trapErrors bool
}

// WithTrapErrors makes transitions swallow hook errors. Callers then inspect
// the returned State's Failed flag and the Machine's Err.
func WithTrapErrors() Option {
	return func(s *settings) {
		s.trapErrors = true
	}
}

// Machine drives the lifecycle state record for one stage context.
// All methods are safe for concurrent use, though a stage context is
// normally owned by a single phase.
type Machine[O any] struct {
	hooks      Hooks[O]
	trapErrors bool

	mu         sync.Mutex
	state      State
	path       transitionPath
	cachedOpts O
	lastErr    error
}

// New constructs a Machine over hooks and runs Initialize.
func New[O any](hooks Hooks[O], opts ...Option) *Machine[O] {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	m := &Machine[O]{hooks: hooks, trapErrors: s.trapErrors}
	m.hooks.Initialize()
	return m
}

// State returns a snapshot of the machine's flags.
func (m *Machine[O]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error recorded by the most recent failed transition, or
// nil. It is the inspection point for trapped errors.
func (m *Machine[O]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Build computes the stage fresh via the Build hook. The opts value is
// cached for Refresh replay.
func (m *Machine[O]) Build(ctx context.Context, opts O) (State, error) {
	return m.transition(ctx, pathBuild, opts)
}

// Load restores the stage from a saved artifact via the Load hook. The opts
// value is cached for Refresh replay.
func (m *Machine[O]) Load(ctx context.Context, opts O) (State, error) {
	return m.transition(ctx, pathLoad, opts)
}

// Finalize adopts caller-assembled data via the Finalize hook. A finalized
// machine cannot be refreshed.
func (m *Machine[O]) Finalize(ctx context.Context) (State, error) {
	var zero O
	return m.transition(ctx, pathFinalize, zero)
}

func (m *Machine[O]) transition(ctx context.Context, path transitionPath, opts O) (State, error) {
	m.mu.Lock()
	if m.path != pathNone {
		state := m.state
		m.mu.Unlock()
		return state, ErrAlreadyReady
	}
	m.path = path
	if path != pathFinalize {
		m.cachedOpts = opts
	}
	m.mu.Unlock()

	return m.run(ctx, path, opts, path.String())
}

// Refresh re-runs Initialize and replays the original Build or Load with the
// cached options value.
func (m *Machine[O]) Refresh(ctx context.Context) (State, error) {
	m.mu.Lock()
	if m.path == pathFinalize {
		state := m.state
		m.mu.Unlock()
		return state, ErrRefreshAfterFinalize
	}
	if !m.state.Ready {
		state := m.state
		m.mu.Unlock()
		return state, ErrNotReady
	}
	path := m.path
	opts := m.cachedOpts
	m.state.Ready = false
	m.state.Stale = false
	m.mu.Unlock()

	m.hooks.Initialize()
	return m.run(ctx, path, opts, "refresh")
}

// run invokes the hook for path and applies the success or failure
// bookkeeping. The label names the externally visible transition for error
// wrapping ("refresh" rather than the replayed path).
func (m *Machine[O]) run(ctx context.Context, path transitionPath, opts O, label string) (State, error) {
	var hookErr error
	switch path {
	case pathBuild:
		hookErr = m.hooks.Build(ctx, opts)
	case pathLoad:
		hookErr = m.hooks.Load(ctx, opts)
	case pathFinalize:
		hookErr = m.hooks.Finalize(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if hookErr != nil {
		wrapped := &TransitionError{Transition: label, Err: hookErr}
		m.state = State{Failed: true}
		m.lastErr = wrapped
		if m.trapErrors {
			return m.state, nil
		}
		return m.state, wrapped
	}

	m.state = State{
		Built:     path == pathBuild,
		Loaded:    path == pathLoad,
		Finalized: path == pathFinalize,
		Ready:     true,
	}
	m.lastErr = nil
	return m.state, nil
}

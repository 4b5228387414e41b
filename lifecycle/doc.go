// Package lifecycle drives the build/load/finalize/refresh state machine
// shared by every migration stage context.
//
// # Model
//
// A stage context (analysis, extraction, transform, cleanup, deployment,
// load, sharing) implements the Hooks interface and is driven by a Machine.
// The Machine owns the state record - six independent flags: Built, Loaded,
// Finalized, Failed, Ready, Stale - and enforces the transition rules; the
// hooks only perform the stage-specific work.
//
// # Rules
//
//   - Exactly one of Build, Load, or Finalize may be attempted per Machine.
//     A second transition reports ErrAlreadyReady regardless of how the
//     first one went.
//   - A successful transition sets its own flag, clears its siblings, and
//     sets Ready. A failed hook sets Failed and clears Ready.
//   - Refresh replays the original Build or Load with the exact options
//     value originally supplied, after re-running Initialize. It requires
//     Ready and is never available after Finalize: ad hoc finalization has
//     no replay path.
//
// # Error trapping
//
// With trapping off (the default, used by migration phases) a failed hook's
// error is returned wrapped in a *TransitionError so pipeline-level error
// handling stays centralized. With trapping on, transitions never return
// hook errors; callers inspect the returned State's Failed flag and Err.
// Sequencing violations (ErrAlreadyReady, ErrNotReady,
// ErrRefreshAfterFinalize) are usage errors and are returned regardless of
// the trapping mode.
package lifecycle

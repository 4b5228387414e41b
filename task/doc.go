// Package task binds one asynchronous unit of migration work to a result
// node, a progress observer, and a parent node, and defines the single
// finalize protocol every unit of work goes through.
//
// # Protocol
//
// Begin creates the node, publishes the initial status line, and starts a
// heartbeat notifier. The work then runs however the caller likes. Finalize
// is called exactly once with the outcome:
//
//   - nil marks the node successful
//   - an error marks the node errored, wrapped with the task's namespace
//   - a terminal *result.Node marks the node failed and attaches the child
//     for tree completeness
//   - anything else is a defect in the calling code and is converted to a
//     *DefectError so the run never hangs silently
//
// Finalize then attaches the node to its parent (propagating any bubbled
// parent error to the observer), signals Complete or Error on the observer,
// and returns the operational error, if any, to the caller. A second
// Finalize on the same task reports ErrTerminal from the result package.
package task

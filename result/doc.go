// Package result provides hierarchical outcome tracking for migration
// operations.
//
// # Overview
//
// Every unit of work in a migration run - a pipeline, a pipeline step, a
// lifecycle transition on a stage context, or a top-level command - records
// its outcome in a Node. Nodes form a tree: a phase pipeline's Node holds one
// child per step, and a step's Node may hold children of its own (for example
// a validation step attaches the failed comparison as a child). The root Node
// of a command invocation therefore contains the complete, timestamped record
// of everything that happened during the run.
//
// # Terminal States
//
// A Node starts in StatusInitialized and moves to exactly one terminal state
// via Success, Error, or Failure. Once terminal the Node is read-only: a
// second terminal call returns ErrTerminal, and detail writes are ignored.
// Error records an operational fault (a collaborator call blew up); Failure
// records a structured domain failure (a validation gate found a count
// mismatch) that is expected to be reported rather than propagated.
//
// # Bubbling
//
// Each Node fixes two policy flags at creation: BubbleError and
// BubbleFailure. When AddChild attaches a terminally errored (or failed)
// child to a parent whose corresponding flag is set, the parent is forced
// into the same terminal state and AddChild returns a *BubbledError so the
// caller can decide whether to halt the enclosing work. Phase pipelines are
// created with both flags off so sibling steps keep running after one
// failure and the operator sees every problem in a single run.
package result

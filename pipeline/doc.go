// Package pipeline sequences migration steps into phases.
//
// # Shape
//
// A Pipeline is an ordered list of Steps run either sequentially or
// concurrently. A Pipeline is itself a Step, so phases compose
// hierarchically: the analyze phase groups its per-entity count steps into a
// concurrent sub-pipeline followed by a single report-writing step.
//
// Every Run creates one result node for the pipeline and attaches it to the
// parent node in the Env; steps attach their own nodes beneath it. The
// pipeline node's terminal state aggregates its children: any errored child
// makes the pipeline errored, otherwise any failed child makes it failed,
// otherwise it succeeds. Pipelines absorb child outcomes (bubble flags off)
// so sibling steps keep running and a single run reports every problem.
//
// # Ordering
//
// Sequential pipelines guarantee step n+1 never starts before step n's node
// is terminal. Concurrent pipelines start every non-skipped step together
// and wait for all of them; no completion order is guaranteed. FailFast
// stops a sequential pipeline from starting further steps after a
// terminal-error step; steps already running are never interrupted.
//
// # Skipping
//
// A Step may implement Skip(ctx) bool. Skipped steps contribute nothing to
// the aggregate outcome - no child node, no error, no failure.
package pipeline

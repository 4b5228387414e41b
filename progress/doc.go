// Package progress carries live status from running migration tasks to a
// human operator.
//
// The Observer interface is the channel the orchestration core publishes
// into: Next for status lines, then exactly one of Complete or Error when
// the observed work finishes. LogObserver renders the stream through slog
// for CLI runs; Recorder captures it for tests.
//
// Notifier emits periodic "[Ns] message" heartbeat lines to an Observer so
// long-running platform calls stay visibly alive. It is a side channel
// only - stopping or abandoning a notifier never changes any result state.
package progress

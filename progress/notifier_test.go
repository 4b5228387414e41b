package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmigrate/tmig/result"
)

// TestNotifier_EmitsHeartbeats tests that heartbeat lines reach the observer
// and carry the elapsed-seconds prefix.
func TestNotifier_EmitsHeartbeats(t *testing.T) {
	recorder := NewRecorder()
	node := result.New(result.SourceStep, result.Options{Name: "extract territories"})

	handle := Start("extracting territory records", 10*time.Millisecond, node, recorder)

	require.Eventually(t, func() bool {
		return len(recorder.Messages()) >= 2
	}, time.Second, 5*time.Millisecond, "Notifier should tick repeatedly")
	Finish(handle)

	messages := recorder.Messages()
	assert.Regexp(t, `^\[\d+s\] extracting territory records$`, messages[0])
	assert.Contains(t, node.Detail("progress"), "extracting territory records")
	assert.Equal(t, result.StatusInitialized, node.Status(), "Notifier must never touch node status")
}

// TestNotifier_FinishStopsEmission tests that no lines arrive after Finish.
func TestNotifier_FinishStopsEmission(t *testing.T) {
	recorder := NewRecorder()
	handle := Start("working", 10*time.Millisecond, nil, recorder)

	require.Eventually(t, func() bool {
		return len(recorder.Messages()) >= 1
	}, time.Second, 5*time.Millisecond)
	Finish(handle)

	seen := len(recorder.Messages())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, len(recorder.Messages()), "No heartbeats after Finish")
}

// TestNotifier_FinishIdempotent tests double and nil finishes.
func TestNotifier_FinishIdempotent(t *testing.T) {
	handle := Start("working", 10*time.Millisecond, nil, NewRecorder())

	Finish(handle)
	assert.NotPanics(t, func() { Finish(handle) }, "Second Finish is a no-op")
	assert.NotPanics(t, func() { Finish(nil) }, "Nil handle is a no-op")
}

// TestRecorder_TerminalSignals tests the test observer's bookkeeping.
func TestRecorder_TerminalSignals(t *testing.T) {
	recorder := NewRecorder()
	recorder.Next("one")
	recorder.Complete()
	recorder.Error(assert.AnError)

	assert.Equal(t, []string{"one"}, recorder.Messages())
	assert.Equal(t, 1, recorder.Completions())
	require.Len(t, recorder.Errors(), 1)
	assert.ErrorIs(t, recorder.Errors()[0], assert.AnError)
}

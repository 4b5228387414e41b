package result

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNode_InitialState tests that a new node starts initialized.
func TestNode_InitialState(t *testing.T) {
	node := New(SourceStep, Options{Name: "count territories"})

	assert.Equal(t, StatusInitialized, node.Status())
	assert.False(t, node.IsTerminal())
	assert.Equal(t, "count territories", node.Name())
	assert.Equal(t, SourceStep, node.Source())
	assert.NotEmpty(t, node.ID().String())
	assert.False(t, node.Started().IsZero())
	assert.True(t, node.Ended().IsZero())
}

// TestNode_DefaultName tests that the source type is used when no name is given.
func TestNode_DefaultName(t *testing.T) {
	node := New(SourcePipeline, Options{})
	assert.Equal(t, "pipeline", node.Name())
}

// TestNode_Terminality tests that terminal transitions are one-shot.
func TestNode_Terminality(t *testing.T) {
	t.Run("SuccessThenError", func(t *testing.T) {
		node := New(SourceStep, Options{})
		require.NoError(t, node.Success())

		err := node.Error(errors.New("late failure"))
		require.Error(t, err, "Second terminal call must be rejected")
		assert.ErrorIs(t, err, ErrTerminal)
		assert.Equal(t, StatusSuccess, node.Status(), "Status must be permanently success")
		assert.NoError(t, node.Err())
	})

	t.Run("ErrorThenSuccess", func(t *testing.T) {
		node := New(SourceStep, Options{})
		boom := errors.New("boom")
		require.NoError(t, node.Error(boom))

		err := node.Success()
		require.ErrorIs(t, err, ErrTerminal)
		assert.Equal(t, StatusError, node.Status())
		assert.Equal(t, boom, node.Err())
	})

	t.Run("DoubleFailure", func(t *testing.T) {
		node := New(SourceValidation, Options{})
		require.NoError(t, node.Failure(errors.New("count mismatch")))
		require.ErrorIs(t, node.Failure(errors.New("again")), ErrTerminal)
		assert.Equal(t, StatusFailure, node.Status())
	})
}

// TestNode_EndTimestamp tests that the end time is set exactly once.
func TestNode_EndTimestamp(t *testing.T) {
	node := New(SourceStep, Options{})
	require.NoError(t, node.Success())

	ended := node.Ended()
	assert.False(t, ended.IsZero())
	assert.GreaterOrEqual(t, node.Duration().Nanoseconds(), int64(0))
}

// TestNode_Detail tests detail writes and the terminal freeze.
func TestNode_Detail(t *testing.T) {
	node := New(SourceAction, Options{})
	node.SetDetail("entity", "Territory")
	assert.Equal(t, "Territory", node.Detail("entity"))

	require.NoError(t, node.Success())
	node.SetDetail("entity", "Territory2")
	assert.Equal(t, "Territory", node.Detail("entity"), "Detail writes after terminal must be ignored")
}

// TestNode_AddChild tests plain child attachment without bubbling.
func TestNode_AddChild(t *testing.T) {
	parent := New(SourcePipeline, Options{})

	ok := New(SourceStep, Options{Name: "step-1"})
	require.NoError(t, ok.Success())
	failed := New(SourceStep, Options{Name: "step-2"})
	require.NoError(t, failed.Error(errors.New("boom")))

	require.NoError(t, parent.AddChild(ok))
	require.NoError(t, parent.AddChild(failed), "Parent without bubble flags absorbs errored children")

	assert.Equal(t, StatusInitialized, parent.Status(), "Absorbing parent stays non-terminal")
	require.Len(t, parent.Children(), 2)
	assert.Equal(t, "step-1", parent.Children()[0].Name())
	assert.Equal(t, "step-2", parent.Children()[1].Name())
}

// TestNode_BubbleError tests that an errored child forces a bubbling parent
// terminal and surfaces a BubbledError to the attacher.
func TestNode_BubbleError(t *testing.T) {
	parent := New(SourcePipeline, Options{Name: "extract", BubbleError: true})
	child := New(SourceStep, Options{Name: "retrieve metadata"})
	boom := errors.New("metadata retrieve rejected")
	require.NoError(t, child.Error(boom))

	err := parent.AddChild(child)
	require.Error(t, err, "Bubbling attach must surface to the caller")

	var bubbled *BubbledError
	require.ErrorAs(t, err, &bubbled)
	assert.Same(t, child, bubbled.Child)
	assert.ErrorIs(t, err, boom, "BubbledError must unwrap to the child's error")

	assert.Equal(t, StatusError, parent.Status())
	assert.Len(t, parent.Children(), 1, "Child is attached even when it bubbles")
}

// TestNode_BubbleFailure tests the failure-bubbling variant.
func TestNode_BubbleFailure(t *testing.T) {
	parent := New(SourcePipeline, Options{BubbleFailure: true})
	child := New(SourceValidation, Options{Name: "territory gate"})
	require.NoError(t, child.Failure(errors.New("expected 42, found 40")))

	err := parent.AddChild(child)
	var bubbled *BubbledError
	require.ErrorAs(t, err, &bubbled)
	assert.Equal(t, StatusFailure, parent.Status())
}

// TestNode_NoBubbleAcrossKinds tests that failure children do not trip the
// error bubble flag and vice versa.
func TestNode_NoBubbleAcrossKinds(t *testing.T) {
	t.Run("FailureChildErrorBubble", func(t *testing.T) {
		parent := New(SourcePipeline, Options{BubbleError: true})
		child := New(SourceValidation, Options{})
		require.NoError(t, child.Failure(errors.New("mismatch")))

		require.NoError(t, parent.AddChild(child))
		assert.Equal(t, StatusInitialized, parent.Status())
	})

	t.Run("ErrorChildFailureBubble", func(t *testing.T) {
		parent := New(SourcePipeline, Options{BubbleFailure: true})
		child := New(SourceStep, Options{})
		require.NoError(t, child.Error(errors.New("boom")))

		require.NoError(t, parent.AddChild(child))
		assert.Equal(t, StatusInitialized, parent.Status())
	})
}

// TestNode_AddChildAfterTerminal tests the defensive no-op on terminal parents.
func TestNode_AddChildSelf(t *testing.T) {
	n := New(SourceStep, Options{Name: "loop"})

	require.NoError(t, n.AddChild(n), "Attaching a node to itself must be swallowed")
	assert.Empty(t, n.Children())
	assert.Equal(t, StatusInitialized, n.Status())
}

func TestNode_AddChildAfterTerminal(t *testing.T) {
	parent := New(SourcePipeline, Options{BubbleError: true})
	require.NoError(t, parent.Error(errors.New("already broken")))

	child := New(SourceStep, Options{})
	require.NoError(t, child.Error(errors.New("late")))

	require.NoError(t, parent.AddChild(child), "Attaching to a terminal parent must be swallowed")
	assert.Empty(t, parent.Children())
}

// TestNode_ConcurrentAddChild tests that concurrent attachers do not race.
func TestNode_ConcurrentAddChild(t *testing.T) {
	parent := New(SourcePipeline, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			child := New(SourceStep, Options{})
			_ = child.Success()
			_ = parent.AddChild(child)
		}()
	}
	wg.Wait()

	assert.Len(t, parent.Children(), 16)
}

// TestSummarize tests the report snapshot of a small tree.
func TestSummarize(t *testing.T) {
	root := New(SourcePipeline, Options{Name: "analyze"})
	step := New(SourceStep, Options{Name: "count territories"})
	step.SetDetail("entity", "Territory")
	require.NoError(t, step.Success())
	require.NoError(t, root.AddChild(step))
	require.NoError(t, root.Success())

	summary := Summarize(root)
	assert.Equal(t, "analyze", summary.Name)
	assert.Equal(t, "success", summary.Status)
	assert.Equal(t, string(SourcePipeline), summary.SourceType)
	require.Len(t, summary.Children, 1)
	assert.Equal(t, "count territories", summary.Children[0].Name)
	assert.Equal(t, "Territory", summary.Children[0].Detail["entity"])
}

// TestCountByStatus tests the status tally across a tree.
func TestCountByStatus(t *testing.T) {
	root := New(SourcePipeline, Options{})
	ok := New(SourceStep, Options{})
	require.NoError(t, ok.Success())
	bad := New(SourceStep, Options{})
	require.NoError(t, bad.Error(errors.New("boom")))
	require.NoError(t, root.AddChild(ok))
	require.NoError(t, root.AddChild(bad))
	require.NoError(t, root.Failure(errors.New("one step errored")))

	counts := CountByStatus(root)
	assert.Equal(t, 1, counts[StatusSuccess])
	assert.Equal(t, 1, counts[StatusError])
	assert.Equal(t, 1, counts[StatusFailure])
}

package result

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTerminal is returned when a terminal transition or child attachment is
// attempted on a Node that has already reached a terminal state.
var ErrTerminal = errors.New("result node is already terminal")

// BubbledError is returned by AddChild when a terminally failed or errored
// child forces its parent terminal via the parent's bubble flags.
type BubbledError struct {
	// ParentName identifies the parent node that absorbed the child outcome.
	ParentName string

	// Child is the node whose terminal state was bubbled.
	Child *Node
}

// Error implements the error interface.
func (e *BubbledError) Error() string {
	return fmt.Sprintf("%s bubbled from child %q: %v", e.ParentName, e.Child.Name(), e.Child.Err())
}

// Unwrap exposes the child's recorded error for errors.Is/As chains.
func (e *BubbledError) Unwrap() error {
	return e.Child.Err()
}

// Options configures Node creation. The zero value is valid: both bubble
// flags default to off, which is the policy used by phase pipelines so
// sibling steps keep running after one failure.
type Options struct {
	// Name is a human-readable label for the operation, used in logs,
	// reports, and error messages.
	Name string

	// BubbleError forces this node terminal-error when an errored child is
	// attached.
	BubbleError bool

	// BubbleFailure forces this node terminal-failure when a failed child is
	// attached.
	BubbleFailure bool
}

// Node records the outcome of one operation. See the package documentation
// for the tree and bubbling semantics.
//
// All methods are safe for concurrent use; concurrent pipeline steps attach
// children to a shared parent.
type Node struct {
	id            uuid.UUID
	name          string
	sourceType    SourceType
	bubbleError   bool
	bubbleFailure bool
	start         time.Time

	mu       sync.RWMutex
	status   Status
	err      error
	detail   map[string]any
	children []*Node
	end      time.Time
}

// New creates a Node in StatusInitialized tagged with the given source type.
func New(sourceType SourceType, opts Options) *Node {
	name := opts.Name
	if name == "" {
		name = string(sourceType)
	}
	return &Node{
		id:            uuid.New(),
		name:          name,
		sourceType:    sourceType,
		bubbleError:   opts.BubbleError,
		bubbleFailure: opts.BubbleFailure,
		start:         time.Now(),
		status:        StatusInitialized,
		detail:        make(map[string]any),
	}
}

// ID returns the node's unique identifier.
func (n *Node) ID() uuid.UUID { return n.id }

// Name returns the node's label.
func (n *Node) Name() string { return n.name }

// Source returns the kind of operation that produced the node.
func (n *Node) Source() SourceType { return n.sourceType }

// Status returns the node's current status.
func (n *Node) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// IsTerminal reports whether the node has reached a terminal state.
func (n *Node) IsTerminal() bool {
	return n.Status().IsTerminal()
}

// Err returns the error recorded by Error or Failure, or nil.
func (n *Node) Err() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.err
}

// Started returns the node's creation time.
func (n *Node) Started() time.Time { return n.start }

// Ended returns the time the node reached a terminal state, or the zero time
// if it has not.
func (n *Node) Ended() time.Time {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.end
}

// Duration returns the elapsed time between creation and the terminal
// transition, or the elapsed time so far for a non-terminal node.
func (n *Node) Duration() time.Duration {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.end.IsZero() {
		return time.Since(n.start)
	}
	return n.end.Sub(n.start)
}

// SetDetail records a free-form detail value on a non-terminal node.
// Writes to a terminal node are ignored.
func (n *Node) SetDetail(key string, value any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status.IsTerminal() {
		return
	}
	n.detail[key] = value
}

// Detail returns the detail value for key, or nil.
func (n *Node) Detail(key string) any {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.detail[key]
}

// Success transitions the node to terminal success.
// Returns ErrTerminal if the node is already terminal.
func (n *Node) Success() error {
	return n.terminal(StatusSuccess, nil)
}

// Error transitions the node to terminal error, recording err.
// Returns ErrTerminal if the node is already terminal.
func (n *Node) Error(err error) error {
	return n.terminal(StatusError, err)
}

// Failure transitions the node to terminal failure, recording err as the
// structured failure description.
// Returns ErrTerminal if the node is already terminal.
func (n *Node) Failure(err error) error {
	return n.terminal(StatusFailure, err)
}

func (n *Node) terminal(status Status, err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status.IsTerminal() {
		return fmt.Errorf("%w: %q is %s, cannot transition to %s", ErrTerminal, n.name, n.status, status)
	}
	n.status = status
	n.err = err
	n.end = time.Now()
	return nil
}

// AddChild appends child to this node's children.
//
// If this node is already terminal the call is a silent no-op; late
// attachments during error unwinding must not cascade into further faults.
//
// If the child is terminal-error and BubbleError is set (or terminal-failure
// and BubbleFailure is set), this node is forced into the same terminal state
// and a *BubbledError is returned so the caller can decide whether to halt
// the enclosing work. The child is attached either way.
func (n *Node) AddChild(child *Node) error {
	// A node cannot parent itself; child.Status() below would deadlock on
	// the node's own lock.
	if child == n {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status.IsTerminal() {
		return nil
	}
	n.children = append(n.children, child)

	bubbled := &BubbledError{ParentName: n.name, Child: child}
	switch child.Status() {
	case StatusError:
		if n.bubbleError {
			n.status = StatusError
			n.err = bubbled
			n.end = time.Now()
			return bubbled
		}
	case StatusFailure:
		if n.bubbleFailure {
			n.status = StatusFailure
			n.err = bubbled
			n.end = time.Now()
			return bubbled
		}
	}
	return nil
}

// Children returns a copy of the node's children in attachment order.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	children := make([]*Node, len(n.children))
	copy(children, n.children)
	return children
}

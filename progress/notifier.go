package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/tmigrate/tmig/result"
)

// DefaultInterval is the heartbeat interval used when Start is given a
// non-positive one. One second keeps elapsed-time output readable without
// flooding the operator.
const DefaultInterval = time.Second

// Handle identifies one running notifier. Finish stops it; a nil Handle is
// accepted and ignored so callers can finish unconditionally.
type Handle struct {
	done     chan struct{}
	stopOnce sync.Once
}

// Start begins emitting "[Ns] message" to observer every interval, where N
// is whole seconds elapsed since the call. The node, when non-nil, gets the
// latest heartbeat recorded under the "progress" detail key; node status is
// never touched.
//
// The returned Handle must eventually be passed to Finish, or the timer
// goroutine leaks for the life of the process.
func Start(message string, interval time.Duration, node *result.Node, observer Observer) *Handle {
	if interval <= 0 {
		interval = DefaultInterval
	}

	handle := &Handle{done: make(chan struct{})}
	start := time.Now()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-handle.done:
				return
			case now := <-ticker.C:
				line := fmt.Sprintf("[%ds] %s", int(now.Sub(start).Seconds()), message)
				if observer != nil {
					observer.Next(line)
				}
				if node != nil {
					node.SetDetail("progress", line)
				}
			}
		}
	}()

	return handle
}

// Finish stops the notifier behind handle. It is idempotent, and a nil
// handle is a no-op.
func Finish(handle *Handle) {
	if handle == nil {
		return
	}
	handle.stopOnce.Do(func() {
		close(handle.done)
	})
}

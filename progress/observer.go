package progress

import (
	"log/slog"
	"sync"
)

// Observer receives the live status stream of one unit of work.
//
// Implementations must tolerate Next being called from the goroutine running
// the work and from the notifier's timer goroutine concurrently. Complete
// and Error are terminal: the core calls exactly one of them, exactly once,
// per observed unit of work.
type Observer interface {
	// Next publishes a status line.
	Next(message string)

	// Complete signals that the observed work finished successfully.
	Complete()

	// Error signals that the observed work finished with err.
	Error(err error)
}

// LogObserver renders an observer stream through a slog.Logger.
// Status lines log at Info, completion at Debug, errors at Error.
type LogObserver struct {
	logger *slog.Logger
	scope  string
}

// NewLogObserver creates a LogObserver. The scope is attached to every
// record so interleaved streams from concurrent steps stay attributable.
func NewLogObserver(logger *slog.Logger, scope string) *LogObserver {
	return &LogObserver{logger: logger, scope: scope}
}

// Next implements Observer.
func (o *LogObserver) Next(message string) {
	o.logger.Info(message, "scope", o.scope)
}

// Complete implements Observer.
func (o *LogObserver) Complete() {
	o.logger.Debug("complete", "scope", o.scope)
}

// Error implements Observer.
func (o *LogObserver) Error(err error) {
	o.logger.Error("failed", "scope", o.scope, "error", err)
}

// Recorder is an Observer that stores everything it receives.
// It is intended for tests and is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	messages  []string
	completed int
	errs      []error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Next implements Observer.
func (r *Recorder) Next(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

// Complete implements Observer.
func (r *Recorder) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

// Error implements Observer.
func (r *Recorder) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// Messages returns a copy of the status lines received so far.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}

// Completions returns how many times Complete was called.
func (r *Recorder) Completions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Errors returns a copy of the errors received so far.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

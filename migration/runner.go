package migration

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/tmigrate/tmig/logging"
	"github.com/tmigrate/tmig/pipeline"
	"github.com/tmigrate/tmig/progress"
	"github.com/tmigrate/tmig/result"
)

// Runner executes migration phases. One Runner serves many runs; every run
// gets fresh stage contexts, so re-running a phase never trips the
// once-per-instance lifecycle guard.
type Runner struct {
	shared    *SharedContext
	observer  progress.Observer
	recorder  *Recorder
	collector *logging.Collector
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithObserver sets the progress observer every step reports into. The
// default logs through the shared context's logger.
func WithObserver(observer progress.Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = observer
	}
}

// WithRecorder sets the metrics recorder. Without one, runs record nothing.
func WithRecorder(recorder *Recorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = recorder
	}
}

// WithLogCapture collects every log line a phase emits and writes them next
// to the phase report as "<phase>-log.json".
func WithLogCapture(collector *logging.Collector) RunnerOption {
	return func(r *Runner) {
		r.collector = collector
	}
}

// NewRunner constructs a Runner over the shared context.
func NewRunner(shared *SharedContext, opts ...RunnerOption) *Runner {
	r := &Runner{shared: shared}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one phase end to end and returns the command's root result
// node plus the aggregated operational error, if any. Validation failures
// do not produce an error; they surface as the root node's failure status.
func (r *Runner) Run(ctx context.Context, phase string) (*result.Node, error) {
	shared := r.shared
	if r.collector != nil {
		scoped := *r.shared
		scoped.Logger = r.collector.Logger(r.shared.Logger, phase)
		shared = &scoped
	}

	p, err := r.pipelineFor(phase, shared)
	if err != nil {
		return nil, err
	}

	observer := r.observer
	if observer == nil {
		observer = progress.NewLogObserver(shared.Logger, phase)
	}

	root := result.New(result.SourceCommand, result.Options{Name: "tmig " + phase})
	shared.Logger.Info("phase starting",
		"phase", phase,
		"workdir", shared.Config.WorkDir,
		"source", shared.Config.Source.Alias,
		"target", shared.Config.Target.Alias,
	)

	start := time.Now()
	runErr := p.Run(ctx, pipeline.Env{
		Parent:   root,
		Observer: observer,
		Interval: shared.Config.Progress.Interval,
	})
	elapsed := time.Since(start)

	r.settle(root, runErr)
	r.recorder.ObservePhase(phase, root.Status(), elapsed)

	byStatus := result.CountByStatus(root)
	shared.Logger.Info("phase finished",
		"phase", phase,
		"status", root.Status().String(),
		"duration", elapsed,
		"steps_succeeded", byStatus[result.StatusSuccess],
		"steps_failed", byStatus[result.StatusFailure],
		"steps_errored", byStatus[result.StatusError],
	)

	if r.collector != nil {
		if err := r.saveLogArtifact(phase); err != nil {
			shared.Logger.Warn("could not write log artifact", "error", err)
		}
	}

	return root, runErr
}

// settle marks the root node terminal from the pipeline outcome. The phase
// pipeline's node is the root's only child.
func (r *Runner) settle(root *result.Node, runErr error) {
	if runErr != nil {
		_ = root.Error(runErr)
		return
	}
	for _, child := range root.Children() {
		if child.Status() == result.StatusFailure {
			_ = root.Failure(child.Err())
			return
		}
	}
	_ = root.Success()
}

// saveLogArtifact persists the captured phase logs as JSON.
func (r *Runner) saveLogArtifact(phase string) error {
	entries := r.collector.Phase(phase)
	if entries == nil {
		entries = []logging.Entry{}
	}
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding log artifact: %w", err)
	}
	path := r.shared.path(phase + "-log.json")
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing log artifact: %w", err)
	}
	return nil
}

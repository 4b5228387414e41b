package migration

import (
	"fmt"
	"time"

	"github.com/tmigrate/tmig/gate"
	"github.com/tmigrate/tmig/metrics"
	"github.com/tmigrate/tmig/result"
)

// Recorder publishes phase-level migration metrics through a metrics
// registry. With a push registry every observation goes straight to the
// remote write endpoint, so a short-lived CLI run still leaves a trace.
type Recorder struct {
	phaseDuration metrics.Gauge
	entityCount   metrics.Gauge
	phaseRuns     metrics.Counter
}

// NewRecorder registers the migration metrics with reg.
func NewRecorder(reg metrics.Registry) (*Recorder, error) {
	phaseDuration, err := reg.Gauge(metrics.Opts{
		Name:   "phase_duration_seconds",
		Help:   "Wall time of the last run of each phase.",
		Labels: []string{"phase"},
	})
	if err != nil {
		return nil, fmt.Errorf("registering phase duration metric: %w", err)
	}

	entityCount, err := reg.Gauge(metrics.Opts{
		Name:   "entity_records",
		Help:   "Per-entity record counts observed by a phase.",
		Labels: []string{"phase", "entity"},
	})
	if err != nil {
		return nil, fmt.Errorf("registering entity count metric: %w", err)
	}

	phaseRuns, err := reg.Counter(metrics.Opts{
		Name:   "phase_runs_total",
		Help:   "Phase runs by terminal status.",
		Labels: []string{"phase", "status"},
	})
	if err != nil {
		return nil, fmt.Errorf("registering phase runs metric: %w", err)
	}

	return &Recorder{
		phaseDuration: phaseDuration,
		entityCount:   entityCount,
		phaseRuns:     phaseRuns,
	}, nil
}

// ObservePhase records one finished phase run.
func (r *Recorder) ObservePhase(phase string, status result.Status, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.phaseDuration.Set(elapsed.Seconds(), metrics.Labels{"phase": phase})
	r.phaseRuns.Inc(metrics.Labels{"phase": phase, "status": status.String()})
}

// ObserveCounts records the per-entity counts a phase observed.
func (r *Recorder) ObserveCounts(phase string, counts gate.Counts) {
	if r == nil {
		return
	}
	for entity, count := range counts {
		r.entityCount.Set(float64(count), metrics.Labels{"phase": phase, "entity": entity})
	}
}

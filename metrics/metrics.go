// Package metrics publishes migration telemetry to Prometheus-compatible
// backends.
//
// Two backends cover the two shapes a migration run takes. A one-shot CLI
// run has no scrape window, so PushRegistry sends every observation straight
// to a remote write endpoint and the process can exit the moment the phase
// finishes. A long-lived schedule run registers with ScrapeRegistry and is
// collected over /metrics instead. NopRegistry backs runs with no
// monitoring configured.
package metrics

// Labels attaches label values to one observation. Every observation on a
// metric must supply values for the label names its Opts declared.
type Labels map[string]string

// Opts names a metric.
type Opts struct {
	// Name is the metric name without prefix, e.g. "phase_duration_seconds".
	Name string

	// Help is the metric description exposed to scrapes.
	Help string

	// Labels lists the label names every observation must supply.
	Labels []string
}

// Gauge tracks the last observed value per label set.
type Gauge interface {
	Set(value float64, labels Labels)
}

// Counter counts occurrences per label set.
type Counter interface {
	Inc(labels Labels)
}

// Registry creates metrics bound to one backend.
type Registry interface {
	Gauge(opts Opts) (Gauge, error)
	Counter(opts Opts) (Counter, error)
}

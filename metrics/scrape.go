package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeRegistry backs metrics with an in-process Prometheus registry,
// collected over /metrics during schedule runs.
type ScrapeRegistry struct {
	prom *prometheus.Registry
}

// NewScrapeRegistry creates a registry preloaded with the standard Go and
// process collectors.
func NewScrapeRegistry() (*ScrapeRegistry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("registering go collector: %w", err)
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("registering process collector: %w", err)
	}
	return &ScrapeRegistry{prom: reg}, nil
}

// Handler serves the registry's metrics for a /metrics endpoint.
func (r *ScrapeRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Gauge implements Registry.
func (r *ScrapeRegistry) Gauge(opts Opts) (Gauge, error) {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: opts.Name, Help: opts.Help}, opts.Labels)
	if err := r.prom.Register(vec); err != nil {
		return nil, fmt.Errorf("registering gauge %q: %w", opts.Name, err)
	}
	return scrapeGauge{vec: vec}, nil
}

// Counter implements Registry.
func (r *ScrapeRegistry) Counter(opts Opts) (Counter, error) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: opts.Name, Help: opts.Help}, opts.Labels)
	if err := r.prom.Register(vec); err != nil {
		return nil, fmt.Errorf("registering counter %q: %w", opts.Name, err)
	}
	return scrapeCounter{vec: vec}, nil
}

type scrapeGauge struct {
	vec *prometheus.GaugeVec
}

func (g scrapeGauge) Set(value float64, labels Labels) {
	g.vec.With(prometheus.Labels(labels)).Set(value)
}

type scrapeCounter struct {
	vec *prometheus.CounterVec
}

func (c scrapeCounter) Inc(labels Labels) {
	c.vec.With(prometheus.Labels(labels)).Inc()
}

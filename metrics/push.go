package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
)

// DefaultTimeout bounds each remote write request.
const DefaultTimeout = 30 * time.Second

// remoteWritePath is the write endpoint under the configured base URL,
// served by both Prometheus and VictoriaMetrics.
const remoteWritePath = "/api/v1/write"

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the remote write base URL, e.g. "http://victoria:8428".
	URL string

	// Prefix is prepended to every metric name with an underscore.
	Prefix string

	// Job and Instance become the job and instance labels on every sample.
	Job      string
	Instance string

	// Timeout bounds each write request. Zero selects DefaultTimeout.
	Timeout time.Duration
}

// PushRegistry sends every observation to a remote write endpoint as it
// happens.
type PushRegistry struct {
	writer *remoteWriter
}

// NewPushRegistry creates a registry writing to cfg.URL.
func NewPushRegistry(cfg PushConfig) *PushRegistry {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PushRegistry{writer: &remoteWriter{
		url:      cfg.URL + remoteWritePath,
		client:   &http.Client{Timeout: timeout},
		prefix:   cfg.Prefix,
		job:      cfg.Job,
		instance: cfg.Instance,
		timeout:  timeout,
	}}
}

// Gauge implements Registry.
func (r *PushRegistry) Gauge(opts Opts) (Gauge, error) {
	return pushGauge{writer: r.writer, name: opts.Name}, nil
}

// Counter implements Registry. The running totals live in the process, so a
// restart resets them to zero; Prometheus rate functions tolerate that.
func (r *PushRegistry) Counter(opts Opts) (Counter, error) {
	return &pushCounter{
		writer: r.writer,
		name:   opts.Name,
		totals: make(map[string]*counterTotal),
	}, nil
}

type pushGauge struct {
	writer *remoteWriter
	name   string
}

// Set pushes the sample immediately. The write is fire and forget; a lost
// sample must not fail the phase that produced it.
func (g pushGauge) Set(value float64, labels Labels) {
	_ = g.writer.write(g.name, value, labels)
}

type counterTotal struct {
	labels Labels
	value  float64
}

type pushCounter struct {
	writer *remoteWriter
	name   string

	mu     sync.Mutex
	totals map[string]*counterTotal
}

// Inc bumps the running total for the label set and pushes it.
func (c *pushCounter) Inc(labels Labels) {
	key := labels.key()

	c.mu.Lock()
	total, ok := c.totals[key]
	if !ok {
		total = &counterTotal{labels: labels}
		c.totals[key] = total
	}
	total.value++
	value := total.value
	c.mu.Unlock()

	_ = c.writer.write(c.name, value, labels)
}

// key folds a label set into a deterministic map key.
func (l Labels) key() string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)

	key := ""
	for _, name := range names {
		key += name + "=" + l[name] + ";"
	}
	return key
}

// remoteWriter marshals single samples into snappy-compressed remote write
// requests.
type remoteWriter struct {
	url      string
	client   *http.Client
	prefix   string
	job      string
	instance string
	timeout  time.Duration
}

func (w *remoteWriter) write(name string, value float64, labels Labels) error {
	payload, err := proto.Marshal(&prompb.WriteRequest{
		Timeseries: []prompb.TimeSeries{w.series(name, value, labels)},
	})
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(snappy.Encode(nil, payload)))
	if err != nil {
		return fmt.Errorf("creating write request: %w", err)
	}
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending write request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote write returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

func (w *remoteWriter) series(name string, value float64, labels Labels) prompb.TimeSeries {
	metricName := name
	if w.prefix != "" {
		metricName = w.prefix + "_" + name
	}

	promLabels := make([]prompb.Label, 0, len(labels)+3)
	promLabels = append(promLabels, prompb.Label{Name: "__name__", Value: metricName})
	if w.job != "" {
		promLabels = append(promLabels, prompb.Label{Name: "job", Value: w.job})
	}
	if w.instance != "" {
		promLabels = append(promLabels, prompb.Label{Name: "instance", Value: w.instance})
	}
	for labelName, labelValue := range labels {
		promLabels = append(promLabels, prompb.Label{Name: labelName, Value: labelValue})
	}

	return prompb.TimeSeries{
		Labels:  promLabels,
		Samples: []prompb.Sample{{Value: value, Timestamp: time.Now().UnixMilli()}},
	}
}

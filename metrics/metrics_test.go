package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remoteWriteServer decodes every remote write request it receives.
func remoteWriteServer(t *testing.T) (*httptest.Server, *[]prompb.WriteRequest) {
	t.Helper()
	var writes []prompb.WriteRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/write", r.URL.Path)
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Content-Type"))

		compressed, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, compressed)
		require.NoError(t, err)

		var req prompb.WriteRequest
		require.NoError(t, proto.Unmarshal(raw, &req))
		writes = append(writes, req)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)
	return server, &writes
}

func labelValue(ts prompb.TimeSeries, name string) string {
	for _, label := range ts.Labels {
		if label.Name == name {
			return label.Value
		}
	}
	return ""
}

func TestPushGauge_Set(t *testing.T) {
	server, writes := remoteWriteServer(t)
	registry := NewPushRegistry(PushConfig{
		URL:      server.URL,
		Prefix:   "territory_migration",
		Job:      "tmig",
		Instance: "host-1",
	})

	gauge, err := registry.Gauge(Opts{
		Name:   "phase_duration_seconds",
		Help:   "Wall time of the last run of each phase.",
		Labels: []string{"phase"},
	})
	require.NoError(t, err)

	gauge.Set(12.5, Labels{"phase": "analyze"})

	require.Len(t, *writes, 1)
	require.Len(t, (*writes)[0].Timeseries, 1)
	series := (*writes)[0].Timeseries[0]
	assert.Equal(t, "territory_migration_phase_duration_seconds", labelValue(series, "__name__"))
	assert.Equal(t, "tmig", labelValue(series, "job"))
	assert.Equal(t, "host-1", labelValue(series, "instance"))
	assert.Equal(t, "analyze", labelValue(series, "phase"))
	require.Len(t, series.Samples, 1)
	assert.Equal(t, 12.5, series.Samples[0].Value)
}

func TestPushCounter_IncAccumulates(t *testing.T) {
	server, writes := remoteWriteServer(t)
	registry := NewPushRegistry(PushConfig{URL: server.URL})

	counter, err := registry.Counter(Opts{
		Name:   "phase_runs_total",
		Labels: []string{"phase", "status"},
	})
	require.NoError(t, err)

	counter.Inc(Labels{"phase": "extract", "status": "success"})
	counter.Inc(Labels{"phase": "extract", "status": "success"})
	counter.Inc(Labels{"phase": "extract", "status": "failure"})

	require.Len(t, *writes, 3)
	assert.Equal(t, float64(1), (*writes)[0].Timeseries[0].Samples[0].Value)
	assert.Equal(t, float64(2), (*writes)[1].Timeseries[0].Samples[0].Value, "Same label set keeps one running total")
	assert.Equal(t, float64(1), (*writes)[2].Timeseries[0].Samples[0].Value, "Distinct label set starts its own total")
}

func TestPushGauge_ServerErrorSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "out of disk", http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := NewPushRegistry(PushConfig{URL: server.URL})
	gauge, err := registry.Gauge(Opts{Name: "phase_duration_seconds", Labels: []string{"phase"}})
	require.NoError(t, err)

	// Samples are fire and forget; a failing endpoint must not surface.
	gauge.Set(1, Labels{"phase": "load"})
}

func TestNewPushRegistry_DefaultTimeout(t *testing.T) {
	registry := NewPushRegistry(PushConfig{URL: "http://localhost:8428"})
	assert.Equal(t, DefaultTimeout, registry.writer.timeout)
}

func TestLabels_KeyDeterministic(t *testing.T) {
	a := Labels{"phase": "load", "status": "success"}
	b := Labels{"status": "success", "phase": "load"}
	assert.Equal(t, a.key(), b.key())
	assert.NotEqual(t, a.key(), Labels{"phase": "load", "status": "failure"}.key())
}

func TestScrapeRegistry(t *testing.T) {
	registry, err := NewScrapeRegistry()
	require.NoError(t, err)

	gauge, err := registry.Gauge(Opts{
		Name:   "entity_records",
		Help:   "Per-entity record counts observed by a phase.",
		Labels: []string{"phase", "entity"},
	})
	require.NoError(t, err)
	counter, err := registry.Counter(Opts{
		Name:   "phase_runs_total",
		Help:   "Phase runs by terminal status.",
		Labels: []string{"phase", "status"},
	})
	require.NoError(t, err)

	gauge.Set(42, Labels{"phase": "analyze", "entity": "Territory"})
	counter.Inc(Labels{"phase": "analyze", "status": "success"})

	recorder := httptest.NewRecorder()
	registry.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := recorder.Body.String()
	assert.Contains(t, body, `entity_records{entity="Territory",phase="analyze"} 42`)
	assert.Contains(t, body, `phase_runs_total{phase="analyze",status="success"} 1`)
	assert.Contains(t, body, "go_goroutines", "Standard collectors are registered")
}

func TestScrapeRegistry_DuplicateName(t *testing.T) {
	registry, err := NewScrapeRegistry()
	require.NoError(t, err)

	_, err = registry.Gauge(Opts{Name: "entity_records", Labels: []string{"phase"}})
	require.NoError(t, err)
	_, err = registry.Gauge(Opts{Name: "entity_records", Labels: []string{"phase"}})
	assert.Error(t, err)
}

func TestNopRegistry(t *testing.T) {
	registry := NewNopRegistry()

	gauge, err := registry.Gauge(Opts{Name: "entity_records"})
	require.NoError(t, err)
	counter, err := registry.Counter(Opts{Name: "phase_runs_total"})
	require.NoError(t, err)

	gauge.Set(1, Labels{"phase": "analyze"})
	counter.Inc(Labels{"phase": "analyze"})
}

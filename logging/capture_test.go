package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))
}

func TestCollector_CapturesAndPassesThrough(t *testing.T) {
	var out bytes.Buffer
	base := slog.New(slog.NewTextHandler(&out, nil))
	collector := NewCollector()

	logger := collector.Logger(base, "extract")
	logger.Info("entity exported", "entity", "Territory", "rows", 42)

	entries := collector.Phase("extract")
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "entity exported", entries[0].Message)
	assert.Equal(t, "Territory", entries[0].Attributes["entity"])
	assert.Equal(t, int64(42), entries[0].Attributes["rows"])
	assert.Contains(t, out.String(), "entity exported", "Records still reach the base handler")
}

func TestCollector_KeepsDebugBelowConsoleLevel(t *testing.T) {
	var out bytes.Buffer
	base := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelWarn}))
	collector := NewCollector()

	logger := collector.Logger(base, "analyze")
	logger.Debug("counting", "entity", "Territory")

	require.Len(t, collector.Phase("analyze"), 1, "The artifact keeps records the console filters")
	assert.Empty(t, out.String(), "The console level still applies to output")
}

func TestCollector_WithAttrsSurvivesCapture(t *testing.T) {
	collector := NewCollector()

	logger := collector.Logger(quietLogger(), "load").With("org", "nextgen")
	logger.Info("bulk load finished")

	entries := collector.Phase("load")
	require.Len(t, entries, 1)
	assert.Equal(t, "nextgen", entries[0].Attributes["org"])
}

func TestCollector_ErrorAttributesFlattened(t *testing.T) {
	collector := NewCollector()
	logger := collector.Logger(quietLogger(), "deploy")

	logger.Error("deployment rejected", "error", errors.New("3 component errors"))

	entries := collector.Phase("deploy")
	require.Len(t, entries, 1)
	assert.Equal(t, "3 component errors", entries[0].Attributes["error"])
}

func TestCollector_GroupAttributesNested(t *testing.T) {
	collector := NewCollector()
	logger := collector.Logger(quietLogger(), "analyze")

	logger.Info("org resolved", slog.Group("org", slog.String("alias", "legacy")))

	entries := collector.Phase("analyze")
	require.Len(t, entries, 1)
	group, ok := entries[0].Attributes["org"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "legacy", group["alias"])
}

func TestCollector_PhasesIsolated(t *testing.T) {
	collector := NewCollector()
	base := quietLogger()

	collector.Logger(base, "analyze").Info("counts staged")
	collector.Logger(base, "extract").Info("records exported")

	require.Len(t, collector.Phase("analyze"), 1)
	require.Len(t, collector.Phase("extract"), 1)
	assert.Nil(t, collector.Phase("transform"))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector()
	logger := collector.Logger(quietLogger(), "analyze")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("count finished")
		}()
	}
	wg.Wait()

	assert.Len(t, collector.Phase("analyze"), 20)
}

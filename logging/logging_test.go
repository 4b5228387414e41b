package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Config{}},
		{name: "text format", cfg: Config{Format: "text"}},
		{name: "debug level", cfg: Config{Level: "debug"}},
		{name: "stderr output", cfg: Config{Output: "stderr"}},
		{name: "unknown level", cfg: Config{Level: "chatty"}, wantErr: "unknown log level"},
		{name: "unknown format", cfg: Config{Format: "xml"}, wantErr: "unsupported log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmig.log")
	logger, err := New(Config{Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("extract started", "entity", "Territory")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "extract started")
	assert.Contains(t, string(raw), "Territory")
}

func TestNew_FileOutputBadPath(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "tmig.log")})
	assert.ErrorContains(t, err, "opening log file")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

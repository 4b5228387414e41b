// Package logging builds the slog loggers tmig runs with and captures
// per-phase log streams for the capture-logs artifact.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config selects the log level, format, and destination.
type Config struct {
	// Level is the minimum level: debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`

	// Output is stdout, stderr, or a file path to append to.
	Output string `yaml:"output"`

	// AddSource adds the logging call site to every record.
	AddSource bool `yaml:"add_source"`
}

// New builds a logger from cfg. Empty fields default to info, json, and
// stdout.
func New(cfg Config) (*slog.Logger, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	writer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: rfc3339Time,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}
	return slog.New(handler), nil
}

// rfc3339Time pins record timestamps to RFC 3339 so log shippers parse them
// consistently across the json and text formats.
func rfc3339Time(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
	}
	return a
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %q: %w", output, err)
		}
		return file, nil
	}
}

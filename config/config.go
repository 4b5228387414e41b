// Package config loads and validates the tmig configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const (
	defaultWorkDir          = "."
	defaultProgressInterval = time.Second
	defaultGatewayTimeout   = 5 * time.Minute
	defaultMetricsPrefix    = "territory_migration"
	defaultJobName          = "tmig"
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
	defaultLogOutput        = "stderr"
)

// defaultEntities is the legacy-model entity set tracked by analysis and
// validated by every later gate.
var defaultEntities = []string{"Territory", "TerritoryRule", "UserTerritory", "AccountShare"}

// Config represents the complete tmig configuration.
type Config struct {
	WorkDir    string           `yaml:"workdir"`
	Source     OrgConfig        `yaml:"source"`
	Target     OrgConfig        `yaml:"target"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Entities   []string         `yaml:"entities"`
	Behavior   BehaviorConfig   `yaml:"behavior"`
	Progress   ProgressConfig   `yaml:"progress"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// OrgConfig identifies one connected org.
type OrgConfig struct {
	// Alias is the org alias the gateway resolves.
	Alias string `yaml:"alias"`
}

// GatewayConfig holds the migration gateway connection settings.
type GatewayConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// BehaviorConfig tunes how phases execute.
type BehaviorConfig struct {
	// FailFast stops a phase from starting further steps after an
	// operational error. Validation failures never trigger it.
	FailFast bool `yaml:"fail_fast"`

	// SequentialCounts disables the concurrent per-entity count and extract
	// sub-pipelines, for gateways that reject parallel exports.
	SequentialCounts bool `yaml:"sequential_counts"`
}

// ProgressConfig tunes the live progress heartbeat.
type ProgressConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MonitoringConfig holds metrics push settings. An empty URL disables
// metrics entirely.
type MonitoringConfig struct {
	RemoteWriteURL string `yaml:"remote_write_url"`
	MetricsPrefix  string `yaml:"metrics_prefix"`
	JobName        string `yaml:"jobname"`
}

// LoggingConfig defines logging behavior settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// defaults returns the configuration merged under every loaded file.
func defaults() Config {
	return Config{
		WorkDir:  defaultWorkDir,
		Gateway:  GatewayConfig{Timeout: defaultGatewayTimeout},
		Entities: append([]string{}, defaultEntities...),
		Progress: ProgressConfig{Interval: defaultProgressInterval},
		Monitoring: MonitoringConfig{
			MetricsPrefix: defaultMetricsPrefix,
			JobName:       defaultJobName,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
			Output: defaultLogOutput,
		},
	}
}

// LoadConfig reads, defaults, and validates the configuration at path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.SetDefaults(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SetDefaults fills unset fields from the default configuration.
func (c *Config) SetDefaults() error {
	if err := mergo.Merge(c, defaults()); err != nil {
		return fmt.Errorf("applying config defaults: %w", err)
	}
	return nil
}

// Validate performs basic validation on the configuration.
func (c *Config) Validate() error {
	if c.Source.Alias == "" {
		return fmt.Errorf("source org alias is required")
	}
	if c.Target.Alias == "" {
		return fmt.Errorf("target org alias is required")
	}
	if c.Gateway.URL == "" {
		return fmt.Errorf("gateway URL is required")
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive")
	}
	if len(c.Entities) == 0 {
		return fmt.Errorf("at least one tracked entity is required")
	}
	if c.Progress.Interval <= 0 {
		return fmt.Errorf("progress interval must be positive")
	}
	return nil
}

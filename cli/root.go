// Package cli wires the tmig command tree: one subcommand per migration
// phase, plus the scheduling and monitoring surface around them.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tmigrate/tmig/config"
	"github.com/tmigrate/tmig/logging"
	"github.com/tmigrate/tmig/metrics"
	"github.com/tmigrate/tmig/migration"
	"github.com/tmigrate/tmig/platform"
)

const (
	configFlag      = "config"
	workDirFlag     = "dir"
	captureLogsFlag = "capture-logs"
	scheduleFlag    = "schedule"
	listenFlag      = "listen"
)

// Exit codes. Operational errors and validation failures are distinguished
// so wrapping scripts can retry the former and page on the latter.
const (
	exitOK         = 0
	exitError      = 1
	exitValidation = 2
)

// validationError marks a run that completed but failed a validation gate.
type validationError struct {
	phase string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("phase %s completed with validation failures", e.phase)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	command := NewRootCommand()
	if err := command.Execute(); err != nil {
		var vErr *validationError
		if errors.As(err, &vErr) {
			return exitValidation
		}
		return exitError
	}
	return exitOK
}

// NewRootCommand assembles the tmig command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tmig",
		Short:         "Territory model migration orchestrator",
		Long:          "tmig migrates a legacy territory model to the next-generation model through independently retryable phases.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringP(configFlag, "c", "tmig.yaml", "Path to the configuration file")
	root.PersistentFlags().StringP(workDirFlag, "d", "", "Working directory for reports and artifacts (overrides config)")
	root.PersistentFlags().Bool(captureLogsFlag, false, "Write the phase's captured logs next to its report")

	for _, phase := range migration.Phases() {
		root.AddCommand(newPhaseCommand(phase))
	}
	root.AddCommand(newVersionCommand())

	return root
}

// app holds the collaborators one command invocation wires together.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	shared    *migration.SharedContext
	options   []migration.RunnerOption
	runner    *migration.Runner
	collector *logging.Collector
}

// newApp loads configuration and builds the runner for one invocation.
func newApp(command *cobra.Command) (*app, error) {
	configPath, _ := command.Flags().GetString(configFlag)
	workDir, _ := command.Flags().GetString(workDirFlag)
	captureLogs, _ := command.Flags().GetBool(captureLogsFlag)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if workDir != "" {
		cfg.WorkDir = workDir
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	client := platform.NewRESTClient(cfg.Gateway.URL,
		platform.WithToken(cfg.Gateway.Token),
		platform.WithTimeout(cfg.Gateway.Timeout),
	)

	shared := migration.NewSharedContext(cfg, client, logger)

	options := []migration.RunnerOption{}
	if recorder, err := newRecorder(cfg); err != nil {
		return nil, err
	} else if recorder != nil {
		options = append(options, migration.WithRecorder(recorder))
	}

	a := &app{cfg: cfg, logger: logger, shared: shared}
	if captureLogs {
		a.collector = logging.NewCollector()
		options = append(options, migration.WithLogCapture(a.collector))
	}

	a.options = options
	a.runner = migration.NewRunner(shared, options...)
	return a, nil
}

// newRecorder builds the metrics recorder when monitoring is configured.
func newRecorder(cfg config.Config) (*migration.Recorder, error) {
	if cfg.Monitoring.RemoteWriteURL == "" {
		return nil, nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	registry := metrics.NewPushRegistry(metrics.PushConfig{
		URL:      cfg.Monitoring.RemoteWriteURL,
		Prefix:   cfg.Monitoring.MetricsPrefix,
		Job:      cfg.Monitoring.JobName,
		Instance: hostname,
	})
	recorder, err := migration.NewRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}
	return recorder, nil
}

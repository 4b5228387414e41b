package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tmigrate/tmig/buildinfo"
	"github.com/tmigrate/tmig/metrics"
	"github.com/tmigrate/tmig/migration"
	"github.com/tmigrate/tmig/result"
	"github.com/tmigrate/tmig/schedule"
)

var phaseShortDescriptions = map[string]string{
	migration.PhaseAnalyze:       "Count source records and write the analysis report",
	migration.PhaseExtract:       "Export records and metadata, gated against the analysis",
	migration.PhaseTransform:     "Rewrite extracted artifacts into the target model",
	migration.PhaseClean:         "Deploy destructive changes removing legacy configuration",
	migration.PhaseDeploy:        "Deploy transformed metadata to the target org",
	migration.PhaseLoad:          "Bulk-load transformed data, gated against the transformation",
	migration.PhaseDeploySharing: "Deploy sharing rules once the data load gate passed",
}

// newPhaseCommand builds the subcommand for one migration phase.
func newPhaseCommand(phase string) *cobra.Command {
	command := &cobra.Command{
		Use:   phase,
		Short: phaseShortDescriptions[phase],
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			a, err := newApp(command)
			if err != nil {
				return err
			}
			return a.runPhase(command.Context(), phase)
		},
	}

	if phase == migration.PhaseAnalyze {
		command.Flags().String(scheduleFlag, "", "Cron expression for recurring analysis runs")
		command.Flags().String(listenFlag, "", "Address serving /metrics while the schedule runs, e.g. :9464")
		command.RunE = func(command *cobra.Command, _ []string) error {
			a, err := newApp(command)
			if err != nil {
				return err
			}
			spec, _ := command.Flags().GetString(scheduleFlag)
			if spec == "" {
				return a.runPhase(command.Context(), phase)
			}
			listen, _ := command.Flags().GetString(listenFlag)
			return a.runScheduled(command.Context(), spec, listen)
		}
	}

	return command
}

// runPhase executes one phase and maps its outcome to an error the root
// command turns into an exit code.
func (a *app) runPhase(ctx context.Context, phase string) error {
	root, err := a.runner.Run(ctx, phase)
	if err != nil {
		return err
	}
	if root.Status() == result.StatusFailure {
		return &validationError{phase: phase}
	}
	return nil
}

// runScheduled runs the analyze phase on a cron schedule until interrupted,
// optionally exposing a Prometheus scrape endpoint.
func (a *app) runScheduled(parent context.Context, spec, listen string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trigger, err := schedule.NewTrigger(spec, schedule.RunFunc(func(ctx context.Context) error {
		_, err := a.runner.Run(ctx, migration.PhaseAnalyze)
		return err
	}), a.logger)
	if err != nil {
		return err
	}

	if listen != "" {
		registry, err := metrics.NewScrapeRegistry()
		if err != nil {
			return fmt.Errorf("initializing scrape registry: %w", err)
		}
		recorder, err := migration.NewRecorder(registry)
		if err != nil {
			return fmt.Errorf("initializing metrics: %w", err)
		}
		// Long-lived schedule runs report through the scrape registry
		// instead of per-sample remote writes.
		a.runner = migration.NewRunner(a.shared, append(a.options, migration.WithRecorder(recorder))...)

		mux := http.NewServeMux()
		mux.Handle("/metrics", registry.Handler())
		server := &http.Server{Addr: listen, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer server.Close()
		a.logger.Info("metrics endpoint listening", "addr", listen)
	}

	a.logger.Info("scheduled analysis starting", "spec", spec, "next_run", trigger.NextRun())
	trigger.Start(ctx)
	<-ctx.Done()
	a.logger.Info("scheduled analysis stopped")
	return nil
}

// newVersionCommand reports the build's version metadata.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(command *cobra.Command, _ []string) {
			info := buildinfo.Get()
			fmt.Fprintf(command.OutOrStdout(), "tmig %s (commit %s, built %s)\n",
				info.Version, info.GitCommit, info.BuildTime)
		},
	}
}

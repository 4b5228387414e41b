package migration

import (
	"context"
	"fmt"

	"github.com/tmigrate/tmig/gate"
	"github.com/tmigrate/tmig/pipeline"
	"github.com/tmigrate/tmig/platform"
	"github.com/tmigrate/tmig/report"
	"github.com/tmigrate/tmig/result"
	"github.com/tmigrate/tmig/task"
)

// Phase names, one per CLI subcommand.
const (
	PhaseAnalyze       = "analyze"
	PhaseExtract       = "extract"
	PhaseTransform     = "transform"
	PhaseClean         = "clean"
	PhaseDeploy        = "deploy"
	PhaseLoad          = "load"
	PhaseDeploySharing = "deploysharing"
)

// Phases returns the phase names in migration order.
func Phases() []string {
	return []string{
		PhaseAnalyze,
		PhaseExtract,
		PhaseTransform,
		PhaseClean,
		PhaseDeploy,
		PhaseLoad,
		PhaseDeploySharing,
	}
}

// childNS scopes a step name under the pipeline namespace it runs in.
func childNS(env pipeline.Env, name string) string {
	if env.Namespace == "" {
		return name
	}
	return env.Namespace + ":" + name
}

// reportStep is a pipeline step whose work needs the running phase's result
// node, so the written report can carry a snapshot of the run.
func reportStep(name string, write func(ctx context.Context, run *result.Node) error) pipeline.Step {
	return pipeline.StepFunc{
		StepName: name,
		Work: func(ctx context.Context, env pipeline.Env) error {
			t := task.Begin(task.Options{
				Namespace: childNS(env, name),
				Name:      name,
				Parent:    env.Parent,
				Observer:  env.Observer,
				Interval:  env.Interval,
			})
			if err := write(ctx, env.Parent); err != nil {
				return t.Finalize(err)
			}
			return t.Finalize(nil)
		},
	}
}

// analyzePipeline counts every tracked entity in the source org, adopts the
// counts into the Analysis context, and writes the analysis report.
func (r *Runner) analyzePipeline(shared *SharedContext) *pipeline.Pipeline {
	cfg := shared.Config
	analysis := NewAnalysis(shared)

	countSteps := make([]pipeline.Step, 0, len(cfg.Entities))
	for _, entity := range cfg.Entities {
		entity := entity
		countSteps = append(countSteps, pipeline.Do("count-"+entity, func(ctx context.Context) error {
			count, err := shared.Client.CountRecords(ctx, cfg.Source.Alias, entity)
			if err != nil {
				return err
			}
			analysis.StageCount(entity, count)
			return nil
		}))
	}

	return pipeline.New(PhaseAnalyze, pipeline.Options{FailFast: cfg.Behavior.FailFast},
		pipeline.Do("resolve-source-org", func(ctx context.Context) error {
			org, err := shared.Client.DescribeOrg(ctx, cfg.Source.Alias)
			if err != nil {
				return err
			}
			analysis.StageOrg(org)
			return nil
		}),
		pipeline.New("count-entities", pipeline.Options{Concurrent: !cfg.Behavior.SequentialCounts}, countSteps...),
		pipeline.Do("adopt-counts", func(ctx context.Context) error {
			_, err := analysis.Finalize(ctx)
			return err
		}),
		reportStep("write-report", func(ctx context.Context, run *result.Node) error {
			counts := analysis.Counts()
			r.recorder.ObserveCounts(PhaseAnalyze, counts)
			return report.Save(shared.reportPath(report.AnalysisFile), report.Analysis{
				Header:         shared.header(PhaseAnalyze, analysis.OrgInfo(), run),
				ExpectedCounts: counts,
			})
		}),
	)
}

// extractPipeline exports records and metadata from the source org, gates
// the exported row counts against the analysis, and always writes the
// extraction report so the operator sees both numbers.
func (r *Runner) extractPipeline(shared *SharedContext) *pipeline.Pipeline {
	cfg := shared.Config
	analysis := NewAnalysis(shared)
	extraction := NewExtraction(shared)

	return pipeline.New(PhaseExtract, pipeline.Options{FailFast: cfg.Behavior.FailFast},
		pipeline.Do("load-analysis", func(ctx context.Context) error {
			_, err := analysis.Load(ctx, AnalysisOptions{ReportPath: shared.reportPath(report.AnalysisFile)})
			return err
		}),
		pipeline.Do("extract-records", func(ctx context.Context) error {
			_, err := extraction.Build(ctx, ExtractionOptions{Entities: cfg.Entities})
			return err
		}),
		pipeline.Validate("validate-extraction", func(context.Context) error {
			res := gate.Compare(analysis.Counts(), extraction.ActualCounts())
			extraction.SetValidation(res)
			return res.Err()
		}),
		reportStep("write-report", func(ctx context.Context, run *result.Node) error {
			actual := extraction.ActualCounts()
			r.recorder.ObserveCounts(PhaseExtract, actual)
			return report.Save(shared.reportPath(report.ExtractionFile), report.Extraction{
				Header:         shared.header(PhaseExtract, analysis.OrgInfo(), run),
				ExpectedCounts: analysis.Counts(),
				ActualCounts:   actual,
				Validation:     extraction.Validation(),
				Artifacts:      extraction.Artifacts(),
				MetadataDir:    extraction.MetadataDir(),
			})
		}),
	)
}

// transformPipeline rewrites the extracted artifacts into the target
// territory model and emits the destructive and sharing packages.
func (r *Runner) transformPipeline(shared *SharedContext) *pipeline.Pipeline {
	cfg := shared.Config
	extraction := NewExtraction(shared)
	transformation := NewTransformation(shared)

	return pipeline.New(PhaseTransform, pipeline.Options{FailFast: cfg.Behavior.FailFast},
		pipeline.Do("load-extraction", func(ctx context.Context) error {
			_, err := extraction.Load(ctx, ExtractionOptions{ReportPath: shared.reportPath(report.ExtractionFile)})
			return err
		}),
		pipeline.Do("transform-artifacts", func(ctx context.Context) error {
			_, err := transformation.Build(ctx, TransformOptions{Extraction: extraction})
			return err
		}),
		reportStep("write-report", func(ctx context.Context, run *result.Node) error {
			transformed := transformation.TransformedCounts()
			r.recorder.ObserveCounts(PhaseTransform, transformed)
			return report.Save(shared.reportPath(report.TransformFile), report.Transformation{
				Header:            shared.header(PhaseTransform, r.targetOrg(ctx, shared), run),
				SourceCounts:      transformation.SourceCounts(),
				TransformedCounts: transformed,
				EntityMapping:     transformation.Mapping(),
				Artifacts:         transformation.Artifacts(),
				MetadataDir:       transformation.MetadataDir(),
			})
		}),
	)
}

// cleanPipeline deploys the destructive changes package that removes legacy
// territory configuration from the target org.
func (r *Runner) cleanPipeline(shared *SharedContext) *pipeline.Pipeline {
	cfg := shared.Config
	cleanup := NewCleanup(shared)

	return pipeline.New(PhaseClean, pipeline.Options{FailFast: cfg.Behavior.FailFast},
		pipeline.Do("deploy-destructive-changes", func(ctx context.Context) error {
			_, err := cleanup.Build(ctx, DeployOptions{SourceDir: shared.path(destructiveDir)})
			return err
		}),
		reportStep("write-report", func(ctx context.Context, run *result.Node) error {
			res := cleanup.Result()
			return report.Save(shared.reportPath(report.CleanupFile), report.Cleanup{
				Header:            shared.header(PhaseClean, r.targetOrg(ctx, shared), run),
				DeployID:          res.ID,
				ComponentsRemoved: res.ComponentsDeployed,
			})
		}),
	)
}

// deployPipeline deploys the transformed territory metadata to the target
// org.
func (r *Runner) deployPipeline(shared *SharedContext) *pipeline.Pipeline {
	cfg := shared.Config
	deployment := NewDeployment(shared)

	return pipeline.New(PhaseDeploy, pipeline.Options{FailFast: cfg.Behavior.FailFast},
		pipeline.Do("deploy-metadata", func(ctx context.Context) error {
			_, err := deployment.Build(ctx, DeployOptions{SourceDir: shared.path(transformedDir, metadataDir)})
			return err
		}),
		reportStep("write-report", func(ctx context.Context, run *result.Node) error {
			res := deployment.Result()
			return report.Save(shared.reportPath(report.DeploymentFile), report.Deployment{
				Header:             shared.header(PhaseDeploy, r.targetOrg(ctx, shared), run),
				DeployID:           res.ID,
				ComponentsDeployed: res.ComponentsDeployed,
				ComponentErrors:    res.ComponentErrors,
			})
		}),
	)
}

// loadPipeline bulk-loads the transformed data into the target org and
// gates the loaded counts against the transformed counts.
func (r *Runner) loadPipeline(shared *SharedContext) *pipeline.Pipeline {
	cfg := shared.Config
	transformation := NewTransformation(shared)
	dataLoad := NewDataLoad(shared)

	return pipeline.New(PhaseLoad, pipeline.Options{FailFast: cfg.Behavior.FailFast},
		pipeline.Do("load-transformation", func(ctx context.Context) error {
			_, err := transformation.Load(ctx, TransformOptions{ReportPath: shared.reportPath(report.TransformFile)})
			return err
		}),
		pipeline.Do("bulk-load", func(ctx context.Context) error {
			_, err := dataLoad.Build(ctx, LoadOptions{Artifacts: transformation.Artifacts()})
			return err
		}),
		pipeline.Validate("validate-load", func(context.Context) error {
			res := gate.Compare(transformation.TransformedCounts(), dataLoad.LoadedCounts())
			dataLoad.SetValidation(res)
			return res.Err()
		}),
		reportStep("write-report", func(ctx context.Context, run *result.Node) error {
			loaded := dataLoad.LoadedCounts()
			r.recorder.ObserveCounts(PhaseLoad, loaded)
			return report.Save(shared.reportPath(report.LoadFile), report.DataLoad{
				Header:         shared.header(PhaseLoad, r.targetOrg(ctx, shared), run),
				ExpectedCounts: transformation.TransformedCounts(),
				LoadedCounts:   loaded,
				Validation:     dataLoad.Validation(),
				JobIDs:         dataLoad.JobIDs(),
			})
		}),
	)
}

// deploySharingPipeline deploys the sharing rules package, skipping the
// deployment entirely when the data load's gate did not pass: sharing rules
// over partially loaded data would grant access against missing records.
func (r *Runner) deploySharingPipeline(shared *SharedContext) *pipeline.Pipeline {
	cfg := shared.Config
	dataLoad := NewDataLoad(shared)
	sharing := NewSharing(shared)

	return pipeline.New(PhaseDeploySharing, pipeline.Options{FailFast: cfg.Behavior.FailFast},
		pipeline.Do("load-data-load-report", func(ctx context.Context) error {
			_, err := dataLoad.Load(ctx, LoadOptions{ReportPath: shared.reportPath(report.LoadFile)})
			return err
		}),
		pipeline.DoIf("deploy-sharing-rules",
			func(context.Context) bool {
				if !dataLoad.State().Ready || !dataLoad.Validation().Valid {
					shared.Logger.Warn("skipping sharing rules deployment, data load gate not passed")
					return true
				}
				return false
			},
			func(ctx context.Context) error {
				_, err := sharing.Build(ctx, DeployOptions{SourceDir: shared.path(sharingDir)})
				return err
			},
		),
		reportStep("write-report", func(ctx context.Context, run *result.Node) error {
			res := sharing.Result()
			return report.Save(shared.reportPath(report.SharingFile), report.SharingDeployment{
				Header:        shared.header(PhaseDeploySharing, r.targetOrg(ctx, shared), run),
				DeployID:      res.ID,
				RulesDeployed: res.ComponentsDeployed,
			})
		}),
	)
}

// targetOrg resolves the target org identity for report headers, falling
// back to the configured alias when the gateway cannot be reached.
func (r *Runner) targetOrg(ctx context.Context, shared *SharedContext) platform.OrgInfo {
	info, err := shared.Client.DescribeOrg(ctx, shared.Config.Target.Alias)
	if err != nil {
		shared.Logger.Debug("target org describe failed, using alias only", "error", err)
		return platform.OrgInfo{Alias: shared.Config.Target.Alias}
	}
	return info
}

// pipelineFor returns the builder output for a phase name.
func (r *Runner) pipelineFor(phase string, shared *SharedContext) (*pipeline.Pipeline, error) {
	switch phase {
	case PhaseAnalyze:
		return r.analyzePipeline(shared), nil
	case PhaseExtract:
		return r.extractPipeline(shared), nil
	case PhaseTransform:
		return r.transformPipeline(shared), nil
	case PhaseClean:
		return r.cleanPipeline(shared), nil
	case PhaseDeploy:
		return r.deployPipeline(shared), nil
	case PhaseLoad:
		return r.loadPipeline(shared), nil
	case PhaseDeploySharing:
		return r.deploySharingPipeline(shared), nil
	default:
		return nil, fmt.Errorf("unknown phase %q", phase)
	}
}

package migration

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmigrate/tmig/lifecycle"
	"github.com/tmigrate/tmig/platform"
	"github.com/tmigrate/tmig/report"
)

// DeployOptions selects what a deployment-style stage context builds or
// loads. Cleanup, Deployment, and Sharing all deploy one metadata package to
// the target org and differ only in which package and which report.
type DeployOptions struct {
	// SourceDir is the metadata package to deploy. Used by Build.
	SourceDir string

	// ReportPath is the report to restore from. Used by Load.
	ReportPath string
}

// deployment is the shared machinery behind Cleanup, Deployment, and
// Sharing: deploy a package, keep the result.
type deployment struct {
	shared  *SharedContext
	machine *lifecycle.Machine[DeployOptions]

	mu     sync.Mutex
	result platform.DeployResult
}

// Result returns the recorded deploy outcome.
func (d *deployment) Result() platform.DeployResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// State returns the lifecycle state snapshot.
func (d *deployment) State() lifecycle.State {
	return d.machine.State()
}

// Build deploys the package at opts.SourceDir to the target org.
func (d *deployment) Build(ctx context.Context, opts DeployOptions) (lifecycle.State, error) {
	return d.machine.Build(ctx, opts)
}

// Load restores the deploy outcome from a previous report.
func (d *deployment) Load(ctx context.Context, opts DeployOptions) (lifecycle.State, error) {
	return d.machine.Load(ctx, opts)
}

// Refresh replays the original Build or Load with its original options.
func (d *deployment) Refresh(ctx context.Context) (lifecycle.State, error) {
	return d.machine.Refresh(ctx)
}

func (d *deployment) deploy(ctx context.Context, sourceDir string) error {
	alias := d.shared.Config.Target.Alias
	res, err := d.shared.Client.DeployMetadata(ctx, alias, sourceDir)
	if err != nil {
		return fmt.Errorf("deploying %s to %s: %w", sourceDir, alias, err)
	}
	if !res.Success {
		return fmt.Errorf("deployment %s rejected: %d component error(s)", res.ID, res.ComponentErrors)
	}
	d.shared.Logger.Info("metadata deployed",
		"deploy_id", res.ID,
		"components", res.ComponentsDeployed,
		"source_dir", sourceDir,
	)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = res
	return nil
}

func (d *deployment) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = platform.DeployResult{}
}

func (d *deployment) adopt(res platform.DeployResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = res
}

// Cleanup is the clean phase's stage context: the destructive changes
// deployment that removes legacy territory configuration from the target.
type Cleanup struct {
	deployment
}

// NewCleanup constructs a Cleanup over the shared context.
func NewCleanup(shared *SharedContext) *Cleanup {
	c := &Cleanup{deployment{shared: shared}}
	c.machine = lifecycle.New[DeployOptions](cleanupHooks{c})
	return c
}

type cleanupHooks struct {
	c *Cleanup
}

func (h cleanupHooks) Initialize() { h.c.reset() }

func (h cleanupHooks) Build(ctx context.Context, opts DeployOptions) error {
	return h.c.deploy(ctx, opts.SourceDir)
}

func (h cleanupHooks) Load(_ context.Context, opts DeployOptions) error {
	rep, err := report.Load[report.Cleanup](opts.ReportPath)
	if err != nil {
		return fmt.Errorf("loading cleanup report: %w", err)
	}
	h.c.adopt(platform.DeployResult{
		ID:                 rep.DeployID,
		ComponentsDeployed: rep.ComponentsRemoved,
		Success:            true,
	})
	return nil
}

func (h cleanupHooks) Finalize(context.Context) error {
	return fmt.Errorf("cleanup has no ad hoc adoption path")
}

// Deployment is the deploy phase's stage context: the transformed territory
// metadata deployment.
type Deployment struct {
	deployment
}

// NewDeployment constructs a Deployment over the shared context.
func NewDeployment(shared *SharedContext) *Deployment {
	d := &Deployment{deployment{shared: shared}}
	d.machine = lifecycle.New[DeployOptions](deploymentHooks{d})
	return d
}

type deploymentHooks struct {
	d *Deployment
}

func (h deploymentHooks) Initialize() { h.d.reset() }

func (h deploymentHooks) Build(ctx context.Context, opts DeployOptions) error {
	return h.d.deploy(ctx, opts.SourceDir)
}

func (h deploymentHooks) Load(_ context.Context, opts DeployOptions) error {
	rep, err := report.Load[report.Deployment](opts.ReportPath)
	if err != nil {
		return fmt.Errorf("loading deployment report: %w", err)
	}
	h.d.adopt(platform.DeployResult{
		ID:                 rep.DeployID,
		ComponentsDeployed: rep.ComponentsDeployed,
		ComponentErrors:    rep.ComponentErrors,
		Success:            rep.ComponentErrors == 0,
	})
	return nil
}

func (h deploymentHooks) Finalize(context.Context) error {
	return fmt.Errorf("deployment has no ad hoc adoption path")
}

// Sharing is the deploysharing phase's stage context: the sharing rules
// deployment that depends on a valid data load.
type Sharing struct {
	deployment
}

// NewSharing constructs a Sharing over the shared context.
func NewSharing(shared *SharedContext) *Sharing {
	s := &Sharing{deployment{shared: shared}}
	s.machine = lifecycle.New[DeployOptions](sharingHooks{s})
	return s
}

type sharingHooks struct {
	s *Sharing
}

func (h sharingHooks) Initialize() { h.s.reset() }

func (h sharingHooks) Build(ctx context.Context, opts DeployOptions) error {
	return h.s.deploy(ctx, opts.SourceDir)
}

func (h sharingHooks) Load(_ context.Context, opts DeployOptions) error {
	rep, err := report.Load[report.SharingDeployment](opts.ReportPath)
	if err != nil {
		return fmt.Errorf("loading sharing deployment report: %w", err)
	}
	h.s.adopt(platform.DeployResult{
		ID:                 rep.DeployID,
		ComponentsDeployed: rep.RulesDeployed,
		Success:            true,
	})
	return nil
}

func (h sharingHooks) Finalize(context.Context) error {
	return fmt.Errorf("sharing deployment has no ad hoc adoption path")
}

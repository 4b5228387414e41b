package migration

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmigrate/tmig/gate"
	"github.com/tmigrate/tmig/lifecycle"
	"github.com/tmigrate/tmig/platform"
	"github.com/tmigrate/tmig/report"
)

// AnalysisOptions selects what an Analysis builds or loads.
type AnalysisOptions struct {
	// Entities are the legacy entities to count. Used by Build.
	Entities []string

	// ReportPath is the analysis report to restore from. Used by Load.
	ReportPath string
}

// Analysis is the analyze phase's stage context: the source org identity and
// the expected per-entity record counts every later gate compares against.
//
// The analyze pipeline populates it through Finalize after concurrent count
// steps have staged their results; later phases restore it from the analysis
// report through Load; scheduled runs use Build and Refresh.
type Analysis struct {
	shared  *SharedContext
	machine *lifecycle.Machine[AnalysisOptions]

	mu        sync.Mutex
	stagedOrg platform.OrgInfo
	staged    gate.Counts
	orgInfo   platform.OrgInfo
	counts    gate.Counts
}

// NewAnalysis constructs an Analysis over the shared context.
func NewAnalysis(shared *SharedContext) *Analysis {
	a := &Analysis{shared: shared}
	a.machine = lifecycle.New[AnalysisOptions](analysisHooks{a})
	return a
}

// Build counts every entity fresh from the source org.
func (a *Analysis) Build(ctx context.Context, opts AnalysisOptions) (lifecycle.State, error) {
	return a.machine.Build(ctx, opts)
}

// Load restores the analysis from a previously written report.
func (a *Analysis) Load(ctx context.Context, opts AnalysisOptions) (lifecycle.State, error) {
	return a.machine.Load(ctx, opts)
}

// Finalize adopts the staged org identity and counts.
func (a *Analysis) Finalize(ctx context.Context) (lifecycle.State, error) {
	return a.machine.Finalize(ctx)
}

// Refresh replays the original Build or Load with its original options.
func (a *Analysis) Refresh(ctx context.Context) (lifecycle.State, error) {
	return a.machine.Refresh(ctx)
}

// State returns the lifecycle state snapshot.
func (a *Analysis) State() lifecycle.State {
	return a.machine.State()
}

// StageOrg records the source org identity for a later Finalize.
func (a *Analysis) StageOrg(info platform.OrgInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stagedOrg = info
}

// StageCount records one entity's count for a later Finalize. Safe for
// concurrent use by parallel count steps.
func (a *Analysis) StageCount(entity string, count int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.staged == nil {
		a.staged = gate.Counts{}
	}
	a.staged[entity] = count
}

// OrgInfo returns the analyzed org's identity.
func (a *Analysis) OrgInfo() platform.OrgInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orgInfo
}

// Counts returns a copy of the expected per-entity counts.
func (a *Analysis) Counts() gate.Counts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts.Clone()
}

// analysisHooks adapts Analysis to the lifecycle hook interface.
type analysisHooks struct {
	a *Analysis
}

func (h analysisHooks) Initialize() {
	h.a.mu.Lock()
	defer h.a.mu.Unlock()
	h.a.staged = gate.Counts{}
	h.a.stagedOrg = platform.OrgInfo{}
	h.a.counts = nil
	h.a.orgInfo = platform.OrgInfo{}
}

func (h analysisHooks) Build(ctx context.Context, opts AnalysisOptions) error {
	shared := h.a.shared
	alias := shared.Config.Source.Alias

	org, err := shared.Client.DescribeOrg(ctx, alias)
	if err != nil {
		return fmt.Errorf("describing source org %s: %w", alias, err)
	}

	counts := gate.Counts{}
	for _, entity := range opts.Entities {
		count, err := shared.Client.CountRecords(ctx, alias, entity)
		if err != nil {
			return fmt.Errorf("counting %s in %s: %w", entity, alias, err)
		}
		counts[entity] = count
		shared.Logger.Debug("entity counted", "entity", entity, "count", count)
	}

	h.a.mu.Lock()
	defer h.a.mu.Unlock()
	h.a.orgInfo = org
	h.a.counts = counts
	return nil
}

func (h analysisHooks) Load(_ context.Context, opts AnalysisOptions) error {
	rep, err := report.Load[report.Analysis](opts.ReportPath)
	if err != nil {
		return fmt.Errorf("loading analysis report: %w", err)
	}

	h.a.mu.Lock()
	defer h.a.mu.Unlock()
	h.a.orgInfo = rep.OrgInfo
	h.a.counts = rep.ExpectedCounts.Clone()
	return nil
}

func (h analysisHooks) Finalize(context.Context) error {
	h.a.mu.Lock()
	defer h.a.mu.Unlock()
	if len(h.a.staged) == 0 {
		return fmt.Errorf("no counts staged for adoption")
	}
	h.a.orgInfo = h.a.stagedOrg
	h.a.counts = h.a.staged.Clone()
	return nil
}

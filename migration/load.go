package migration

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmigrate/tmig/gate"
	"github.com/tmigrate/tmig/lifecycle"
	"github.com/tmigrate/tmig/report"
)

// LoadOptions selects what a DataLoad builds or loads.
type LoadOptions struct {
	// Artifacts maps target entity to its transformed data file. Used by
	// Build.
	Artifacts map[string]string

	// ReportPath is the data load report to restore from. Used by Load.
	ReportPath string
}

// DataLoad is the load phase's stage context: the bulk load of transformed
// records into the target org, the counts actually loaded, and the gate
// outcome against the transformed counts.
type DataLoad struct {
	shared  *SharedContext
	machine *lifecycle.Machine[LoadOptions]

	mu         sync.Mutex
	loaded     gate.Counts
	jobIDs     map[string]string
	validation gate.Result
}

// NewDataLoad constructs a DataLoad over the shared context.
func NewDataLoad(shared *SharedContext) *DataLoad {
	d := &DataLoad{shared: shared}
	d.machine = lifecycle.New[LoadOptions](dataLoadHooks{d})
	return d
}

// Build bulk-loads every artifact into the target org.
func (d *DataLoad) Build(ctx context.Context, opts LoadOptions) (lifecycle.State, error) {
	return d.machine.Build(ctx, opts)
}

// Load restores the data load from a previously written report.
func (d *DataLoad) Load(ctx context.Context, opts LoadOptions) (lifecycle.State, error) {
	return d.machine.Load(ctx, opts)
}

// Refresh replays the original Build or Load with its original options.
func (d *DataLoad) Refresh(ctx context.Context) (lifecycle.State, error) {
	return d.machine.Refresh(ctx)
}

// State returns the lifecycle state snapshot.
func (d *DataLoad) State() lifecycle.State {
	return d.machine.State()
}

// LoadedCounts returns a copy of the per-entity counts the target accepted.
func (d *DataLoad) LoadedCounts() gate.Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded.Clone()
}

// JobIDs returns the bulk job id per target entity.
func (d *DataLoad) JobIDs() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.jobIDs))
	for entity, id := range d.jobIDs {
		out[entity] = id
	}
	return out
}

// SetValidation records the gate outcome for the report.
func (d *DataLoad) SetValidation(r gate.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.validation = r
}

// Validation returns the recorded gate outcome.
func (d *DataLoad) Validation() gate.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.validation
}

// dataLoadHooks adapts DataLoad to the lifecycle hook interface.
type dataLoadHooks struct {
	d *DataLoad
}

func (h dataLoadHooks) Initialize() {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	h.d.loaded = nil
	h.d.jobIDs = nil
	h.d.validation = gate.Result{}
}

func (h dataLoadHooks) Build(ctx context.Context, opts LoadOptions) error {
	shared := h.d.shared
	alias := shared.Config.Target.Alias

	loaded := gate.Counts{}
	jobIDs := make(map[string]string, len(opts.Artifacts))
	for _, entity := range sortedKeys(opts.Artifacts) {
		res, err := shared.Client.BulkLoad(ctx, alias, entity, opts.Artifacts[entity])
		if err != nil {
			return fmt.Errorf("loading %s into %s: %w", entity, alias, err)
		}
		loaded[entity] = res.RecordsProcessed
		jobIDs[entity] = res.JobID
		shared.Logger.Info("entity loaded",
			"entity", entity,
			"job_id", res.JobID,
			"processed", res.RecordsProcessed,
			"failed", res.RecordsFailed,
		)
	}

	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	h.d.loaded = loaded
	h.d.jobIDs = jobIDs
	return nil
}

func (h dataLoadHooks) Load(_ context.Context, opts LoadOptions) error {
	rep, err := report.Load[report.DataLoad](opts.ReportPath)
	if err != nil {
		return fmt.Errorf("loading data load report: %w", err)
	}

	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	h.d.loaded = rep.LoadedCounts.Clone()
	h.d.jobIDs = rep.JobIDs
	h.d.validation = rep.Validation
	return nil
}

func (h dataLoadHooks) Finalize(context.Context) error {
	return fmt.Errorf("data load has no ad hoc adoption path")
}

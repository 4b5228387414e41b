package migration

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmigrate/tmig/gate"
	"github.com/tmigrate/tmig/lifecycle"
	"github.com/tmigrate/tmig/report"
)

// ExtractionOptions selects what an Extraction builds or loads.
type ExtractionOptions struct {
	// Entities are the legacy entities to export. Used by Build.
	Entities []string

	// ReportPath is the extraction report to restore from. Used by Load.
	ReportPath string
}

// Extraction is the extract phase's stage context: the per-entity artifacts
// exported from the source org, the actual row counts observed while
// exporting, and the gate outcome against the analysis counts.
type Extraction struct {
	shared  *SharedContext
	machine *lifecycle.Machine[ExtractionOptions]

	mu          sync.Mutex
	actual      gate.Counts
	artifacts   map[string]string
	metadataDir string
	validation  gate.Result
}

// NewExtraction constructs an Extraction over the shared context.
func NewExtraction(shared *SharedContext) *Extraction {
	e := &Extraction{shared: shared}
	e.machine = lifecycle.New[ExtractionOptions](extractionHooks{e})
	return e
}

// Build exports every entity's records plus the territory metadata from the
// source org.
func (e *Extraction) Build(ctx context.Context, opts ExtractionOptions) (lifecycle.State, error) {
	return e.machine.Build(ctx, opts)
}

// Load restores the extraction from a previously written report.
func (e *Extraction) Load(ctx context.Context, opts ExtractionOptions) (lifecycle.State, error) {
	return e.machine.Load(ctx, opts)
}

// Refresh replays the original Build or Load with its original options.
func (e *Extraction) Refresh(ctx context.Context) (lifecycle.State, error) {
	return e.machine.Refresh(ctx)
}

// State returns the lifecycle state snapshot.
func (e *Extraction) State() lifecycle.State {
	return e.machine.State()
}

// ActualCounts returns a copy of the observed per-entity row counts.
func (e *Extraction) ActualCounts() gate.Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actual.Clone()
}

// Artifacts returns the entity-to-file map of exported data.
func (e *Extraction) Artifacts() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.artifacts))
	for entity, path := range e.artifacts {
		out[entity] = path
	}
	return out
}

// MetadataDir returns where the retrieved metadata landed.
func (e *Extraction) MetadataDir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metadataDir
}

// SetValidation records the gate outcome for the report.
func (e *Extraction) SetValidation(r gate.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.validation = r
}

// Validation returns the recorded gate outcome.
func (e *Extraction) Validation() gate.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validation
}

// extractionHooks adapts Extraction to the lifecycle hook interface.
type extractionHooks struct {
	e *Extraction
}

func (h extractionHooks) Initialize() {
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	h.e.actual = nil
	h.e.artifacts = nil
	h.e.metadataDir = ""
	h.e.validation = gate.Result{}
}

func (h extractionHooks) Build(ctx context.Context, opts ExtractionOptions) error {
	shared := h.e.shared
	alias := shared.Config.Source.Alias

	actual := gate.Counts{}
	artifacts := make(map[string]string, len(opts.Entities))
	for _, entity := range opts.Entities {
		dest := shared.dataFile(entity)
		rows, err := shared.Client.ExtractRecords(ctx, alias, entity, dest)
		if err != nil {
			return fmt.Errorf("extracting %s from %s: %w", entity, alias, err)
		}
		actual[entity] = rows
		artifacts[entity] = dest
		shared.Logger.Debug("entity extracted", "entity", entity, "rows", rows, "file", dest)
	}

	destDir := shared.path(metadataDir)
	if err := shared.Client.RetrieveMetadata(ctx, alias, metadataManifest, destDir); err != nil {
		return fmt.Errorf("retrieving metadata from %s: %w", alias, err)
	}

	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	h.e.actual = actual
	h.e.artifacts = artifacts
	h.e.metadataDir = destDir
	return nil
}

func (h extractionHooks) Load(_ context.Context, opts ExtractionOptions) error {
	rep, err := report.Load[report.Extraction](opts.ReportPath)
	if err != nil {
		return fmt.Errorf("loading extraction report: %w", err)
	}

	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	h.e.actual = rep.ActualCounts.Clone()
	h.e.artifacts = rep.Artifacts
	h.e.metadataDir = rep.MetadataDir
	h.e.validation = rep.Validation
	return nil
}

func (h extractionHooks) Finalize(context.Context) error {
	return fmt.Errorf("extraction has no ad hoc adoption path")
}

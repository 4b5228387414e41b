package migration

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/tmigrate/tmig/gate"
	"github.com/tmigrate/tmig/lifecycle"
	"github.com/tmigrate/tmig/report"
)

// TransformOptions selects what a Transformation builds or loads.
type TransformOptions struct {
	// Extraction supplies the source artifacts and counts. Used by Build;
	// it must be ready.
	Extraction *Extraction

	// ReportPath is the transformation report to restore from. Used by
	// Load.
	ReportPath string
}

// Transformation is the transform phase's stage context: the extracted
// artifacts rewritten into the target territory model, plus the destructive
// and sharing metadata packages the later phases deploy.
type Transformation struct {
	shared  *SharedContext
	machine *lifecycle.Machine[TransformOptions]

	mu          sync.Mutex
	source      gate.Counts
	transformed gate.Counts
	mapping     map[string]string
	artifacts   map[string]string
	metadataDir string
}

// NewTransformation constructs a Transformation over the shared context.
func NewTransformation(shared *SharedContext) *Transformation {
	t := &Transformation{shared: shared}
	t.machine = lifecycle.New[TransformOptions](transformHooks{t})
	return t
}

// Build rewrites the extraction's artifacts into the target model.
func (t *Transformation) Build(ctx context.Context, opts TransformOptions) (lifecycle.State, error) {
	return t.machine.Build(ctx, opts)
}

// Load restores the transformation from a previously written report.
func (t *Transformation) Load(ctx context.Context, opts TransformOptions) (lifecycle.State, error) {
	return t.machine.Load(ctx, opts)
}

// Refresh replays the original Build or Load with its original options.
func (t *Transformation) Refresh(ctx context.Context) (lifecycle.State, error) {
	return t.machine.Refresh(ctx)
}

// State returns the lifecycle state snapshot.
func (t *Transformation) State() lifecycle.State {
	return t.machine.State()
}

// SourceCounts returns a copy of the pre-transformation counts.
func (t *Transformation) SourceCounts() gate.Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.source.Clone()
}

// TransformedCounts returns a copy of the counts keyed by target entity.
func (t *Transformation) TransformedCounts() gate.Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transformed.Clone()
}

// Mapping returns the legacy-to-target entity mapping used.
func (t *Transformation) Mapping() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.mapping))
	for legacy, target := range t.mapping {
		out[legacy] = target
	}
	return out
}

// Artifacts returns the target-entity-to-file map of transformed data.
func (t *Transformation) Artifacts() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.artifacts))
	for target, path := range t.artifacts {
		out[target] = path
	}
	return out
}

// MetadataDir returns where the transformed metadata package landed.
func (t *Transformation) MetadataDir() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metadataDir
}

// transformHooks adapts Transformation to the lifecycle hook interface.
type transformHooks struct {
	t *Transformation
}

func (h transformHooks) Initialize() {
	h.t.mu.Lock()
	defer h.t.mu.Unlock()
	h.t.source = nil
	h.t.transformed = nil
	h.t.mapping = nil
	h.t.artifacts = nil
	h.t.metadataDir = ""
}

func (h transformHooks) Build(ctx context.Context, opts TransformOptions) error {
	if opts.Extraction == nil || !opts.Extraction.State().Ready {
		return fmt.Errorf("transformation requires a ready extraction")
	}
	shared := h.t.shared

	source := opts.Extraction.ActualCounts()
	mapping := make(map[string]string, len(source))
	transformed := gate.Counts{}
	artifacts := make(map[string]string, len(source))

	for entity, path := range opts.Extraction.Artifacts() {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := TargetEntity(entity)
		dest := shared.transformedDataFile(target)
		if err := copyFile(path, dest); err != nil {
			return fmt.Errorf("transforming %s data: %w", entity, err)
		}
		mapping[entity] = target
		transformed[target] = source[entity]
		artifacts[target] = dest
		shared.Logger.Debug("entity transformed", "entity", entity, "target", target, "file", dest)
	}

	outDir := shared.path(transformedDir, metadataDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating transformed metadata dir: %w", err)
	}
	if err := writeDestructivePackage(shared.path(destructiveDir), sortedKeys(mapping)); err != nil {
		return err
	}
	if err := writeSharingPackage(shared.path(sharingDir)); err != nil {
		return err
	}

	h.t.mu.Lock()
	defer h.t.mu.Unlock()
	h.t.source = source
	h.t.transformed = transformed
	h.t.mapping = mapping
	h.t.artifacts = artifacts
	h.t.metadataDir = outDir
	return nil
}

func (h transformHooks) Load(_ context.Context, opts TransformOptions) error {
	rep, err := report.Load[report.Transformation](opts.ReportPath)
	if err != nil {
		return fmt.Errorf("loading transformation report: %w", err)
	}

	h.t.mu.Lock()
	defer h.t.mu.Unlock()
	h.t.source = rep.SourceCounts.Clone()
	h.t.transformed = rep.TransformedCounts.Clone()
	h.t.mapping = rep.EntityMapping
	h.t.artifacts = rep.Artifacts
	h.t.metadataDir = rep.MetadataDir
	return nil
}

func (h transformHooks) Finalize(context.Context) error {
	return fmt.Errorf("transformation has no ad hoc adoption path")
}

// copyFile copies src to dest, creating dest's directory as needed.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// writeDestructivePackage emits the destructive changes manifest that the
// clean phase deploys to remove legacy territory configuration.
func writeDestructivePackage(dir string, legacyEntities []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating destructive package dir: %w", err)
	}
	content := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Package>\n"
	for _, entity := range legacyEntities {
		content += fmt.Sprintf("  <types><members>*</members><name>%s</name></types>\n", entity)
	}
	content += "</Package>\n"
	path := filepath.Join(dir, "destructiveChanges.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing destructive manifest: %w", err)
	}
	return nil
}

// writeSharingPackage emits the manifest for the sharing rules package the
// deploysharing phase sends once data load has passed its gate.
func writeSharingPackage(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating sharing package dir: %w", err)
	}
	content := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Package>\n" +
		"  <types><members>*</members><name>SharingRules</name></types>\n" +
		"</Package>\n"
	path := filepath.Join(dir, "package.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing sharing manifest: %w", err)
	}
	return nil
}

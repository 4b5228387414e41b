// Package platformtest provides a configurable in-memory Client for tests.
package platformtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tmigrate/tmig/platform"
)

// Fake implements platform.Client from in-memory fixtures. The zero value is
// usable; every org/entity not configured reports an error, matching the
// gateway's behavior for unknown aliases.
type Fake struct {
	mu sync.Mutex

	// Orgs maps alias to org identity.
	Orgs map[string]platform.OrgInfo

	// Counts maps "alias/entity" to the record count reported by
	// CountRecords and the rows written by ExtractRecords.
	Counts map[string]int

	// Errors maps a method name ("CountRecords", "DeployMetadata", ...) to
	// an error every call of that method returns.
	Errors map[string]error

	// DeployResults is returned by DeployMetadata in call order; when
	// exhausted a generic success is returned.
	DeployResults []platform.DeployResult

	// LoadFailures maps "alias/entity" to a number of records BulkLoad
	// reports as failed.
	LoadFailures map[string]int

	// Calls records every method invocation as "Method(arg,...)".
	Calls []string
}

// NewFake creates a Fake with initialized maps.
func NewFake() *Fake {
	return &Fake{
		Orgs:         make(map[string]platform.OrgInfo),
		Counts:       make(map[string]int),
		Errors:       make(map[string]error),
		LoadFailures: make(map[string]int),
	}
}

// SetCount configures the record count for an alias/entity pair.
func (f *Fake) SetCount(alias, entity string, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Counts[alias+"/"+entity] = count
}

// CallsTo returns how many recorded calls start with method.
func (f *Fake) CallsTo(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.Calls {
		if strings.HasPrefix(call, method+"(") {
			n++
		}
	}
	return n
}

func (f *Fake) record(method string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, fmt.Sprintf("%s(%s)", method, strings.Join(args, ",")))
	return f.Errors[method]
}

// DescribeOrg implements platform.Client.
func (f *Fake) DescribeOrg(_ context.Context, alias string) (platform.OrgInfo, error) {
	if err := f.record("DescribeOrg", alias); err != nil {
		return platform.OrgInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.Orgs[alias]
	if !ok {
		return platform.OrgInfo{}, fmt.Errorf("unknown org alias %q", alias)
	}
	return info, nil
}

// CountRecords implements platform.Client.
func (f *Fake) CountRecords(_ context.Context, alias, entity string) (int, error) {
	if err := f.record("CountRecords", alias, entity); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	count, ok := f.Counts[alias+"/"+entity]
	if !ok {
		return 0, fmt.Errorf("no count configured for %s/%s", alias, entity)
	}
	return count, nil
}

// ExtractRecords implements platform.Client. It writes one line per record
// plus a header so the artifact exists on disk for later phases.
func (f *Fake) ExtractRecords(_ context.Context, alias, entity, destPath string) (int, error) {
	if err := f.record("ExtractRecords", alias, entity, destPath); err != nil {
		return 0, err
	}
	f.mu.Lock()
	count, ok := f.Counts[alias+"/"+entity]
	f.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("no records configured for %s/%s", alias, entity)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, err
	}
	var b strings.Builder
	b.WriteString("Id,Name\n")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, "%s-%04d,%s %d\n", entity, i, entity, i)
	}
	if err := os.WriteFile(destPath, []byte(b.String()), 0o644); err != nil {
		return 0, err
	}
	return count, nil
}

// RetrieveMetadata implements platform.Client. It materializes the
// destination directory so downstream phases see an artifact.
func (f *Fake) RetrieveMetadata(_ context.Context, alias, manifest, destDir string) error {
	if err := f.record("RetrieveMetadata", alias, manifest, destDir); err != nil {
		return err
	}
	return os.MkdirAll(destDir, 0o755)
}

// DeployMetadata implements platform.Client.
func (f *Fake) DeployMetadata(_ context.Context, alias, sourceDir string) (platform.DeployResult, error) {
	if err := f.record("DeployMetadata", alias, sourceDir); err != nil {
		return platform.DeployResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.DeployResults) > 0 {
		deployResult := f.DeployResults[0]
		f.DeployResults = f.DeployResults[1:]
		return deployResult, nil
	}
	return platform.DeployResult{ID: fmt.Sprintf("deploy-%d", len(f.Calls)), ComponentsDeployed: 1, Success: true}, nil
}

// BulkLoad implements platform.Client.
func (f *Fake) BulkLoad(_ context.Context, alias, entity, dataFile string) (platform.LoadResult, error) {
	if err := f.record("BulkLoad", alias, entity, dataFile); err != nil {
		return platform.LoadResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	total := f.Counts[alias+"/"+entity]
	failed := f.LoadFailures[alias+"/"+entity]
	return platform.LoadResult{
		JobID:            fmt.Sprintf("job-%d", len(f.Calls)),
		RecordsProcessed: total - failed,
		RecordsFailed:    failed,
	}, nil
}

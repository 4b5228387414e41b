package platform

import "context"

// Client is the platform access contract the migration phases call into.
//
// Implementations own their timeout and retry behavior; errors they return
// are treated as operational failures by the orchestration core. All methods
// must honor context cancellation.
type Client interface {
	// DescribeOrg resolves an org alias to its identity.
	DescribeOrg(ctx context.Context, alias string) (OrgInfo, error)

	// CountRecords returns the number of records of entity in the org.
	CountRecords(ctx context.Context, alias, entity string) (int, error)

	// ExtractRecords exports every record of entity to destPath and returns
	// how many rows were written.
	ExtractRecords(ctx context.Context, alias, entity, destPath string) (int, error)

	// RetrieveMetadata downloads the components named by manifest into
	// destDir.
	RetrieveMetadata(ctx context.Context, alias, manifest, destDir string) error

	// DeployMetadata deploys the component source under sourceDir.
	DeployMetadata(ctx context.Context, alias, sourceDir string) (DeployResult, error)

	// BulkLoad loads the records in dataFile into entity.
	BulkLoad(ctx context.Context, alias, entity, dataFile string) (LoadResult, error)
}

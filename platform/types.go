// Package platform defines the boundary between the migration core and the
// source/target platform. The core treats these calls as black boxes: their
// resolution or failure drives task wrappers, and any retry or throttling
// policy lives behind the interface, not in the orchestration.
package platform

// OrgInfo describes one connected org.
type OrgInfo struct {
	Alias      string `json:"alias"`
	Username   string `json:"username"`
	OrgID      string `json:"orgId"`
	APIVersion string `json:"apiVersion"`
}

// DeployResult reports the outcome of a metadata deployment.
type DeployResult struct {
	ID                 string `json:"id"`
	ComponentsDeployed int    `json:"componentsDeployed"`
	ComponentErrors    int    `json:"componentErrors"`
	Success            bool   `json:"success"`
}

// LoadResult reports the outcome of one bulk data load job.
type LoadResult struct {
	JobID            string `json:"jobId"`
	RecordsProcessed int    `json:"recordsProcessed"`
	RecordsFailed    int    `json:"recordsFailed"`
}

// Package report defines the durable JSON artifacts each migration phase
// writes into the working directory and reads back in later phases.
//
// Reports are the cross-phase data contract: analysis captures the expected
// record counts, extraction records what was actually pulled plus the gate
// outcome, and so on through sharing deployment. Every phase writes its
// report even when validation fails - the report is how the operator sees
// both numbers.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tmigrate/tmig/gate"
	"github.com/tmigrate/tmig/platform"
	"github.com/tmigrate/tmig/result"
)

// File names for each phase's report within the working directory.
const (
	AnalysisFile   = "analysis-report.json"
	ExtractionFile = "extraction-report.json"
	TransformFile  = "transformation-report.json"
	CleanupFile    = "cleanup-report.json"
	DeploymentFile = "deployment-report.json"
	LoadFile       = "data-load-report.json"
	SharingFile    = "sharing-deployment-report.json"
)

// Header carries the fields common to every phase report.
type Header struct {
	Tool        string           `json:"tool"`
	Version     string           `json:"version"`
	Phase       string           `json:"phase"`
	GeneratedAt time.Time        `json:"generatedAt"`
	OrgInfo     platform.OrgInfo `json:"orgInfo"`
	Run         result.Summary   `json:"run"`
}

// Analysis is the analyze phase report: the expected counts every later
// validation gate compares against.
type Analysis struct {
	Header
	ExpectedCounts gate.Counts `json:"expectedCounts"`
}

// Extraction is the extract phase report.
type Extraction struct {
	Header
	ExpectedCounts gate.Counts       `json:"expectedCounts"`
	ActualCounts   gate.Counts       `json:"actualCounts"`
	Validation     gate.Result       `json:"validation"`
	Artifacts      map[string]string `json:"artifacts"`
	MetadataDir    string            `json:"metadataDir"`
}

// Transformation is the transform phase report.
type Transformation struct {
	Header
	SourceCounts      gate.Counts       `json:"sourceCounts"`
	TransformedCounts gate.Counts       `json:"transformedCounts"`
	EntityMapping     map[string]string `json:"entityMapping"`
	Artifacts         map[string]string `json:"artifacts"`
	MetadataDir       string            `json:"metadataDir"`
}

// Cleanup is the clean phase report.
type Cleanup struct {
	Header
	DeployID          string `json:"deployId"`
	ComponentsRemoved int    `json:"componentsRemoved"`
}

// Deployment is the deploy phase report.
type Deployment struct {
	Header
	DeployID           string `json:"deployId"`
	ComponentsDeployed int    `json:"componentsDeployed"`
	ComponentErrors    int    `json:"componentErrors"`
}

// DataLoad is the load phase report.
type DataLoad struct {
	Header
	ExpectedCounts gate.Counts       `json:"expectedCounts"`
	LoadedCounts   gate.Counts       `json:"loadedCounts"`
	Validation     gate.Result       `json:"validation"`
	JobIDs         map[string]string `json:"jobIds"`
}

// SharingDeployment is the deploysharing phase report.
type SharingDeployment struct {
	Header
	DeployID      string `json:"deployId"`
	RulesDeployed int    `json:"rulesDeployed"`
}

// Path joins a working directory and a report file name.
func Path(workDir, file string) string {
	return filepath.Join(workDir, file)
}

// Save durably writes a report as indented JSON. The write goes through a
// temporary file and a rename so a crash never leaves a torn report behind.
func Save(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing report: %w", err)
	}
	return nil
}

// Load reads a report previously written by Save.
func Load[T any](path string) (T, error) {
	var out T
	payload, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("reading report: %w", err)
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("decoding report %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

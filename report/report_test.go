package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmigrate/tmig/gate"
	"github.com/tmigrate/tmig/platform"
)

// TestSaveLoad_Analysis tests the cross-phase round trip of the analysis
// report, which every later validation gate depends on.
func TestSaveLoad_Analysis(t *testing.T) {
	workDir := t.TempDir()
	path := Path(workDir, AnalysisFile)

	saved := Analysis{
		Header: Header{
			Tool:        "tmig",
			Version:     "1.2.3",
			Phase:       "analyze",
			GeneratedAt: time.Now().UTC(),
			OrgInfo:     platform.OrgInfo{Alias: "legacy", Username: "ops@example.com", OrgID: "00D000000000001"},
		},
		ExpectedCounts: gate.Counts{"Territory": 42, "TerritoryRule": 7},
	}
	require.NoError(t, Save(path, saved))

	loaded, err := Load[Analysis](path)
	require.NoError(t, err)
	assert.Equal(t, saved.OrgInfo, loaded.OrgInfo)
	assert.Equal(t, saved.ExpectedCounts, loaded.ExpectedCounts)
	assert.Equal(t, "analyze", loaded.Phase)
}

// TestSave_ValidationPayload tests that a failed gate result survives
// serialization with both numbers intact.
func TestSave_ValidationPayload(t *testing.T) {
	workDir := t.TempDir()
	path := Path(workDir, ExtractionFile)

	validation := gate.Compare(gate.Counts{"Territory": 42}, gate.Counts{"Territory": 40})
	require.False(t, validation.Valid)

	require.NoError(t, Save(path, Extraction{
		ExpectedCounts: gate.Counts{"Territory": 42},
		ActualCounts:   gate.Counts{"Territory": 40},
		Validation:     validation,
	}))

	loaded, err := Load[Extraction](path)
	require.NoError(t, err)
	assert.False(t, loaded.Validation.Valid)

	territory, ok := loaded.Validation.Entity("Territory")
	require.True(t, ok)
	assert.Equal(t, 42, territory.Expected)
	assert.Equal(t, 40, territory.Found)
}

// TestSave_NoTornReports tests that Save leaves no temporary file behind.
func TestSave_NoTornReports(t *testing.T) {
	workDir := t.TempDir()
	path := Path(workDir, CleanupFile)
	require.NoError(t, Save(path, Cleanup{DeployID: "deploy-1"}))

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, CleanupFile, entries[0].Name())
}

// TestSave_CreatesDirectories tests saving into a not-yet-existing workdir.
func TestSave_CreatesDirectories(t *testing.T) {
	path := Path(filepath.Join(t.TempDir(), "nested", "run-7"), LoadFile)
	require.NoError(t, Save(path, DataLoad{}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

// TestLoad_Missing tests the error for an absent report.
func TestLoad_Missing(t *testing.T) {
	_, err := Load[Analysis](Path(t.TempDir(), AnalysisFile))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

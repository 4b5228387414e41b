package migration

import (
	"context"
	"os"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmigrate/tmig/gate"
	"github.com/tmigrate/tmig/logging"
	"github.com/tmigrate/tmig/metrics"
	"github.com/tmigrate/tmig/report"
	"github.com/tmigrate/tmig/result"
)

func TestRunner_UnknownPhase(t *testing.T) {
	runner := NewRunner(testShared(t, testFake()))
	_, err := runner.Run(context.Background(), "decommission")
	assert.ErrorContains(t, err, "unknown phase")
}

func TestRunner_Analyze(t *testing.T) {
	shared := testShared(t, testFake())
	runner := NewRunner(shared)

	root, err := runner.Run(context.Background(), PhaseAnalyze)
	require.NoError(t, err)
	assert.Equal(t, result.StatusSuccess, root.Status())

	rep, err := report.Load[report.Analysis](shared.reportPath(report.AnalysisFile))
	require.NoError(t, err)
	assert.Equal(t, PhaseAnalyze, rep.Phase)
	assert.Equal(t, "00D-legacy", rep.OrgInfo.OrgID)
	assert.Equal(t, gate.Counts{EntityTerritory: 42, EntityTerritoryRule: 7}, rep.ExpectedCounts)
}

// A count drift between analysis and extraction must fail the gate, yet the
// extraction report is still written carrying both numbers.
func TestRunner_ExtractionCountMismatch(t *testing.T) {
	fake := testFake()
	shared := testShared(t, fake)
	runner := NewRunner(shared)

	_, err := runner.Run(context.Background(), PhaseAnalyze)
	require.NoError(t, err)

	// Two territories vanish from the source between the phases.
	fake.SetCount("legacy", EntityTerritory, 40)

	root, err := runner.Run(context.Background(), PhaseExtract)
	require.NoError(t, err, "a gate mismatch is a validation failure, not an operational error")
	assert.Equal(t, result.StatusFailure, root.Status())

	rep, err := report.Load[report.Extraction](shared.reportPath(report.ExtractionFile))
	require.NoError(t, err)
	assert.Equal(t, 42, rep.ExpectedCounts[EntityTerritory])
	assert.Equal(t, 40, rep.ActualCounts[EntityTerritory])
	assert.False(t, rep.Validation.Valid)

	territory, ok := rep.Validation.Entity(EntityTerritory)
	require.True(t, ok)
	assert.False(t, territory.Valid)
	assert.Equal(t, 42, territory.Expected)
	assert.Equal(t, 40, territory.Found)

	rule, ok := rep.Validation.Entity(EntityTerritoryRule)
	require.True(t, ok)
	assert.True(t, rule.Valid)
}

func TestRunner_ExtractFailFastSkipsReport(t *testing.T) {
	fake := testFake()
	shared := testShared(t, fake)
	shared.Config.Behavior.FailFast = true
	runner := NewRunner(shared)

	_, err := runner.Run(context.Background(), PhaseAnalyze)
	require.NoError(t, err)

	fake.Errors["ExtractRecords"] = assert.AnError
	root, err := runner.Run(context.Background(), PhaseExtract)
	require.Error(t, err)
	assert.Equal(t, result.StatusError, root.Status())

	_, statErr := os.Stat(shared.reportPath(report.ExtractionFile))
	assert.True(t, os.IsNotExist(statErr), "fail-fast halts before the report step starts")
}

// Runs every phase in order against a consistent fake org and expects each
// report to appear and every gate to pass.
func TestRunner_FullMigration(t *testing.T) {
	fake := testFake()
	// The target org accepts everything the transformation produces.
	fake.SetCount("nextgen", TargetTerritory, 42)
	fake.SetCount("nextgen", TargetTerritoryRule, 7)

	shared := testShared(t, fake)
	recorder, err := NewRecorder(metrics.NewNopRegistry())
	require.NoError(t, err)
	runner := NewRunner(shared, WithRecorder(recorder))

	for _, phase := range Phases() {
		root, err := runner.Run(context.Background(), phase)
		require.NoError(t, err, "phase %s", phase)
		require.Equal(t, result.StatusSuccess, root.Status(), "phase %s", phase)
	}

	loadRep, err := report.Load[report.DataLoad](shared.reportPath(report.LoadFile))
	require.NoError(t, err)
	assert.True(t, loadRep.Validation.Valid)
	assert.Equal(t, gate.Counts{TargetTerritory: 42, TargetTerritoryRule: 7}, loadRep.LoadedCounts)
	assert.Len(t, loadRep.JobIDs, 2)

	sharingRep, err := report.Load[report.SharingDeployment](shared.reportPath(report.SharingFile))
	require.NoError(t, err)
	assert.NotEmpty(t, sharingRep.DeployID)
	assert.Equal(t, 1, sharingRep.RulesDeployed)

	// clean, deploy, and deploysharing each deploy one package.
	assert.Equal(t, 3, fake.CallsTo("DeployMetadata"))

	transformRep, err := report.Load[report.Transformation](shared.reportPath(report.TransformFile))
	require.NoError(t, err)
	assert.Equal(t, TargetTerritory, transformRep.EntityMapping[EntityTerritory])
	assert.Equal(t, 42, transformRep.TransformedCounts[TargetTerritory])
	for _, path := range transformRep.Artifacts {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, "transformed artifact should exist")
	}
}

func TestRunner_SharingSkippedWhenLoadGateFailed(t *testing.T) {
	fake := testFake()
	shared := testShared(t, fake)
	runner := NewRunner(shared)

	require.NoError(t, report.Save(shared.reportPath(report.LoadFile), report.DataLoad{
		Header:         report.Header{Phase: PhaseLoad},
		ExpectedCounts: gate.Counts{TargetTerritory: 42},
		LoadedCounts:   gate.Counts{TargetTerritory: 30},
		Validation: gate.Result{
			Entities: []gate.EntityResult{{Entity: TargetTerritory, Expected: 42, Found: 30, Valid: false}},
			Valid:    false,
		},
	}))

	root, err := runner.Run(context.Background(), PhaseDeploySharing)
	require.NoError(t, err)
	assert.Equal(t, result.StatusSuccess, root.Status())

	assert.Equal(t, 0, fake.CallsTo("DeployMetadata"), "sharing rules must not deploy over a failed load")

	rep, err := report.Load[report.SharingDeployment](shared.reportPath(report.SharingFile))
	require.NoError(t, err)
	assert.Empty(t, rep.DeployID)
	assert.Zero(t, rep.RulesDeployed)
}

func TestRunner_LogCaptureWritesArtifact(t *testing.T) {
	shared := testShared(t, testFake())
	collector := logging.NewCollector()
	runner := NewRunner(shared, WithLogCapture(collector))

	root, err := runner.Run(context.Background(), PhaseAnalyze)
	require.NoError(t, err)
	require.Equal(t, result.StatusSuccess, root.Status())

	entries := collector.Phase(PhaseAnalyze)
	require.NotEmpty(t, entries)
	assert.Equal(t, "phase starting", entries[0].Message)

	raw, err := os.ReadFile(shared.path(PhaseAnalyze + "-log.json"))
	require.NoError(t, err)

	var saved []logging.Entry
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Len(t, saved, len(entries))
}

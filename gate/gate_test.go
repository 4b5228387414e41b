package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompare_AllMatch tests the all-valid aggregate.
func TestCompare_AllMatch(t *testing.T) {
	expected := Counts{"Territory": 10, "TerritoryRule": 5}
	actual := Counts{"Territory": 10, "TerritoryRule": 5}

	result := Compare(expected, actual)

	assert.True(t, result.Valid)
	require.Len(t, result.Entities, 2)
	for _, entity := range result.Entities {
		assert.True(t, entity.Valid)
	}
	assert.NoError(t, result.Err())
	assert.Empty(t, result.Mismatches())
}

// TestCompare_Mismatch tests per-entity flags and the aggregate AND.
func TestCompare_Mismatch(t *testing.T) {
	result := Compare(Counts{"Territory": 10, "TerritoryRule": 5}, Counts{"Territory": 9, "TerritoryRule": 5})

	assert.False(t, result.Valid, "Aggregate must be the AND of entity flags")

	territory, ok := result.Entity("Territory")
	require.True(t, ok)
	assert.False(t, territory.Valid)
	assert.Equal(t, 10, territory.Expected)
	assert.Equal(t, 9, territory.Found)

	rule, ok := result.Entity("TerritoryRule")
	require.True(t, ok)
	assert.True(t, rule.Valid)

	require.Len(t, result.Mismatches(), 1)
	assert.Equal(t, "Territory", result.Mismatches()[0].Entity)

	err := result.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Territory expected 10, found 9")
}

// TestCompare_TrackedEntitiesOnly tests that one-sided entities are omitted.
func TestCompare_TrackedEntitiesOnly(t *testing.T) {
	result := Compare(Counts{"Territory": 10, "OnlyExpected": 3}, Counts{"Territory": 10, "OnlyActual": 7})

	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Territory", result.Entities[0].Entity)
	assert.True(t, result.Valid)
}

// TestCompare_Purity tests that inputs are not mutated and ordering is
// deterministic.
func TestCompare_Purity(t *testing.T) {
	expected := Counts{"UserTerritory": 99, "Territory": 42, "AccountShare": 7}
	actual := Counts{"Territory": 42, "AccountShare": 7, "UserTerritory": 99}

	result := Compare(expected, actual)

	assert.Equal(t, Counts{"UserTerritory": 99, "Territory": 42, "AccountShare": 7}, expected)
	assert.Equal(t, Counts{"Territory": 42, "AccountShare": 7, "UserTerritory": 99}, actual)

	names := make([]string, 0, len(result.Entities))
	for _, entity := range result.Entities {
		names = append(names, entity.Entity)
	}
	assert.Equal(t, []string{"AccountShare", "Territory", "UserTerritory"}, names, "Entities must be name-ordered")
}

// TestCompare_Empty tests the degenerate inputs.
func TestCompare_Empty(t *testing.T) {
	result := Compare(Counts{}, Counts{})
	assert.True(t, result.Valid, "An empty comparison has nothing invalid in it")
	assert.Empty(t, result.Entities)
}

// TestCounts_Clone tests independence of the copy.
func TestCounts_Clone(t *testing.T) {
	original := Counts{"Territory": 42}
	clone := original.Clone()
	clone["Territory"] = 1

	assert.Equal(t, 42, original["Territory"])
}

// Package gate compares expected record counts captured during analysis
// against actual counts observed by a later phase.
//
// A mismatch is a data-integrity problem in the source or the extraction,
// never a transient fault: gate results are reported with both numbers so
// the operator can investigate, and are deliberately not retried.
package gate

import (
	"fmt"
	"sort"
	"strings"
)

// Counts maps an entity name to a record count.
type Counts map[string]int

// Clone returns an independent copy of the counts.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for entity, count := range c {
		out[entity] = count
	}
	return out
}

// EntityResult is the comparison outcome for one entity.
type EntityResult struct {
	Entity   string `json:"entity"`
	Expected int    `json:"expected"`
	Found    int    `json:"found"`
	Valid    bool   `json:"valid"`
}

// Result is the outcome of one gate comparison.
type Result struct {
	// Entities holds the per-entity outcomes, ordered by entity name so
	// reports are deterministic.
	Entities []EntityResult `json:"entities"`

	// Valid is the logical AND of every per-entity Valid flag.
	Valid bool `json:"valid"`
}

// Entity returns the outcome for the named entity and whether it was part of
// the comparison.
func (r Result) Entity(name string) (EntityResult, bool) {
	for _, entity := range r.Entities {
		if entity.Entity == name {
			return entity, true
		}
	}
	return EntityResult{}, false
}

// Mismatches returns the entities that failed validation, in report order.
func (r Result) Mismatches() []EntityResult {
	var out []EntityResult
	for _, entity := range r.Entities {
		if !entity.Valid {
			out = append(out, entity)
		}
	}
	return out
}

// Err returns nil for a valid result, or an error describing every mismatch
// with both numbers, suitable for recording on a failure result node.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	parts := make([]string, 0, len(r.Entities))
	for _, m := range r.Mismatches() {
		parts = append(parts, fmt.Sprintf("%s expected %d, found %d", m.Entity, m.Expected, m.Found))
	}
	return fmt.Errorf("count validation failed: %s", strings.Join(parts, "; "))
}

// Compare evaluates expected against actual for every entity present in both
// inputs. Entities present in only one input are outside the gate's tracked
// set and do not contribute. Neither input is mutated.
func Compare(expected, actual Counts) Result {
	entities := make([]string, 0, len(expected))
	for entity := range expected {
		if _, ok := actual[entity]; ok {
			entities = append(entities, entity)
		}
	}
	sort.Strings(entities)

	out := Result{Valid: true}
	for _, entity := range entities {
		entityResult := EntityResult{
			Entity:   entity,
			Expected: expected[entity],
			Found:    actual[entity],
			Valid:    expected[entity] == actual[entity],
		}
		out.Entities = append(out.Entities, entityResult)
		out.Valid = out.Valid && entityResult.Valid
	}
	return out
}

package migration

// Legacy territory model entities and their next-generation counterparts.
const (
	EntityTerritory     = "Territory"
	EntityTerritoryRule = "TerritoryRule"
	EntityUserTerritory = "UserTerritory"
	EntityAccountShare  = "AccountShare"

	TargetTerritory     = "Territory2"
	TargetTerritoryRule = "ObjectTerritory2AssignmentRule"
	TargetUserTerritory = "UserTerritory2Association"
	TargetAccountShare  = "AccountShare"
)

// entityMapping maps each legacy entity to its target-model entity. Entities
// absent from the map migrate under their own name.
var entityMapping = map[string]string{
	EntityTerritory:     TargetTerritory,
	EntityTerritoryRule: TargetTerritoryRule,
	EntityUserTerritory: TargetUserTerritory,
	EntityAccountShare:  TargetAccountShare,
}

// TargetEntity returns the target-model name for a legacy entity.
func TargetEntity(legacy string) string {
	if target, ok := entityMapping[legacy]; ok {
		return target
	}
	return legacy
}

// EntityMapping returns a copy of the legacy-to-target entity mapping for
// the given legacy entities.
func EntityMapping(legacy []string) map[string]string {
	out := make(map[string]string, len(legacy))
	for _, entity := range legacy {
		out[entity] = TargetEntity(entity)
	}
	return out
}

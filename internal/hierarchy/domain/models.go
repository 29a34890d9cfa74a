// Package domain contains the org-hierarchy attribution stamped on every
// canonical ledger row for chargeback rollups.
package domain

// Attribution is the resolved 5-field hierarchy tag. Entities with no
// declared membership land in the reserved unassigned bucket; the fields
// are never empty.
type Attribution struct {
	EntityID   string
	EntityName string
	LevelCode  string
	Path       string
	PathNames  string
}

const (
	UnassignedID   = "unassigned"
	UnassignedName = "Unassigned"
)

// Entity types a membership row may declare.
const (
	EntityTypePlan          = "plan"
	EntityTypeCloudResource = "cloud_resource"
	EntityTypeGenAIModel    = "genai_model"
)

// Unassigned is the reserved bucket for entities without a hierarchy
// declaration.
func Unassigned() Attribution {
	return Attribution{
		EntityID:   UnassignedID,
		EntityName: UnassignedName,
		LevelCode:  "TEAM",
		Path:       UnassignedID,
		PathNames:  UnassignedName,
	}
}

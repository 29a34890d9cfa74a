package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service resolves hierarchy attributions for one tenant at a time.
type Service interface {
	// Load reads the tenant's hierarchy once; the returned Tree answers
	// per-entity lookups without further queries.
	Load(ctx context.Context, tenantID snowflake.ID) (Tree, error)
}

// Tree answers attribution lookups for a loaded tenant hierarchy.
type Tree interface {
	Attribute(entityType, entityID string) Attribution
}

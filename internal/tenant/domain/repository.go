package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Repository reads tenant metadata. The engine never writes tenants.
type Repository interface {
	Get(ctx context.Context, tenantID snowflake.ID) (*Tenant, error)
	ListNodes(ctx context.Context, tenantID snowflake.ID) ([]HierarchyNode, error)
	ListMemberships(ctx context.Context, tenantID snowflake.ID) ([]HierarchyMembership, error)
}

var ErrTenantNotFound = errors.New("tenant_not_found")

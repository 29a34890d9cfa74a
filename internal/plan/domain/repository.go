package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costlens/internal/datewindow"
)

// Repository reads subscription plans for a single tenant. Tenant scoping
// is part of the interface contract, not a table-name convention.
type Repository interface {
	ListOverlapping(ctx context.Context, tenantID snowflake.ID, window datewindow.Window) ([]SubscriptionPlan, error)
}

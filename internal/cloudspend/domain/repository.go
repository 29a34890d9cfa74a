package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costlens/internal/datewindow"
)

// Repository reads cloud billing lines for a single tenant.
type Repository interface {
	ListByWindow(ctx context.Context, tenantID snowflake.ID, window datewindow.Window) ([]BillingLine, error)
}

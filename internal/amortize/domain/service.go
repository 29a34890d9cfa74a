package domain

import (
	"context"

	"github.com/smallbiznis/costlens/internal/datewindow"
	plandomain "github.com/smallbiznis/costlens/internal/plan/domain"
)

// Calculator expands a cycle-priced plan into per-day cost records.
type Calculator interface {
	Expand(ctx context.Context, plan plandomain.SubscriptionPlan, tenantCurrency string, window datewindow.Window) ([]DailyCostRecord, error)
}

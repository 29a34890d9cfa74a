package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costlens/internal/datewindow"
	genaidomain "github.com/smallbiznis/costlens/internal/genai/domain"
)

// Service merges the three GenAI billing flows into the unified per-day
// tables. ConsolidateUsage must commit before ConsolidateCosts may run for
// the same scope.
type Service interface {
	ConsolidateUsage(ctx context.Context, tenantID snowflake.ID, window datewindow.Window) error
	ConsolidateCosts(ctx context.Context, tenantID snowflake.ID, tenantCurrency string, window datewindow.Window) error
	ListUnifiedCosts(ctx context.Context, tenantID snowflake.ID, window datewindow.Window) ([]genaidomain.UnifiedCost, error)
	ListUnifiedUsage(ctx context.Context, tenantID snowflake.ID, window datewindow.Window) ([]genaidomain.UnifiedUsage, error)
}

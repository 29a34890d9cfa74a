// Package migration creates the engine's tables on startup so local and
// self-hosted deployments work out of the box.
package migration

import (
	clouddomain "github.com/smallbiznis/costlens/internal/cloudspend/domain"
	consolidatedomain "github.com/smallbiznis/costlens/internal/consolidate/domain"
	enginedomain "github.com/smallbiznis/costlens/internal/engine/domain"
	focusdomain "github.com/smallbiznis/costlens/internal/focus/domain"
	genaidomain "github.com/smallbiznis/costlens/internal/genai/domain"
	plandomain "github.com/smallbiznis/costlens/internal/plan/domain"
	tenantdomain "github.com/smallbiznis/costlens/internal/tenant/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Models is the full table set, shared with test setup.
func Models() []any {
	return []any{
		&tenantdomain.Tenant{},
		&tenantdomain.HierarchyNode{},
		&tenantdomain.HierarchyMembership{},
		&plandomain.SubscriptionPlan{},
		&clouddomain.BillingLine{},
		&genaidomain.PaygUsage{},
		&genaidomain.PaygCost{},
		&genaidomain.ReservedUsage{},
		&genaidomain.ReservedCost{},
		&genaidomain.InfraUsage{},
		&genaidomain.InfraCost{},
		&genaidomain.UnifiedUsage{},
		&genaidomain.UnifiedCost{},
		&consolidatedomain.StageRun{},
		&focusdomain.CanonicalLedgerRecord{},
		&enginedomain.PipelineRun{},
	}
}

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return conn.AutoMigrate(Models()...)
	}),
)

package domain

import (
	"context"

	amortizedomain "github.com/smallbiznis/costlens/internal/amortize/domain"
	cloudspenddomain "github.com/smallbiznis/costlens/internal/cloudspend/domain"
	genaidomain "github.com/smallbiznis/costlens/internal/genai/domain"
	hierarchydomain "github.com/smallbiznis/costlens/internal/hierarchy/domain"
	plandomain "github.com/smallbiznis/costlens/internal/plan/domain"
	tenantdomain "github.com/smallbiznis/costlens/internal/tenant/domain"
)

// RunContext carries the per-run values every mapped row shares.
type RunContext struct {
	Tenant *tenantdomain.Tenant
	RunID  string
}

// SubscriptionInput joins one amortized day with its originating plan.
type SubscriptionInput struct {
	Plan        plandomain.SubscriptionPlan
	Day         amortizedomain.DailyCostRecord
	Attribution hierarchydomain.Attribution
}

// CloudInput is one provider-reported daily billing line.
type CloudInput struct {
	Line        cloudspenddomain.BillingLine
	Attribution hierarchydomain.Attribution
}

// GenAIInput is one consolidated per-day cost row, optionally joined with
// its unified usage counterpart for quantity mapping.
type GenAIInput struct {
	Cost        genaidomain.UnifiedCost
	Usage       *genaidomain.UnifiedUsage
	Attribution hierarchydomain.Attribution
}

// Mapper turns per-domain daily records into canonical ledger rows.
type Mapper interface {
	MapSubscription(ctx context.Context, run RunContext, in SubscriptionInput) CanonicalLedgerRecord
	MapCloud(ctx context.Context, run RunContext, in CloudInput) CanonicalLedgerRecord
	MapGenAI(ctx context.Context, run RunContext, in GenAIInput) CanonicalLedgerRecord
}

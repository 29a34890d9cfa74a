package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costlens/internal/clock"
	focusdomain "github.com/smallbiznis/costlens/internal/focus/domain"
	genaidomain "github.com/smallbiznis/costlens/internal/genai/domain"
	hierarchydomain "github.com/smallbiznis/costlens/internal/hierarchy/domain"
	"github.com/smallbiznis/costlens/internal/lineage"
	plandomain "github.com/smallbiznis/costlens/internal/plan/domain"
	"github.com/smallbiznis/costlens/internal/reference"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var one = decimal.NewFromInt(1)

type mapper struct {
	log      *zap.Logger
	clock    clock.Clock
	resolver *reference.Resolver
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Resolver *reference.Resolver
}

func NewMapper(p Params) focusdomain.Mapper {
	return &mapper{
		log:      p.Log.Named("focus.mapper"),
		clock:    p.Clock,
		resolver: p.Resolver,
	}
}

// MapSubscription turns one amortized plan-day into a canonical row.
// Billed and effective carry the discounted daily cost; list carries the
// pre-discount daily cost.
func (m *mapper) MapSubscription(ctx context.Context, run focusdomain.RunContext, in focusdomain.SubscriptionInput) focusdomain.CanonicalLedgerRecord {
	day := in.Day.CostDate
	rec := m.base(run, focusdomain.SourceSubscriptions, in.Plan.Provider, day, in.Attribution, in.Plan.Tuple)

	rec.BilledCost = in.Day.DailyCost
	rec.EffectiveCost = in.Day.DailyCost
	rec.ListCost = in.Day.ListDailyCost
	rec.BillingCurrency = in.Day.Currency
	rec.ServiceCategory = m.resolver.ServiceCategory(ctx, focusdomain.SourceSubscriptions, "")
	rec.ServiceName = in.Plan.PlanName
	rec.ResourceID = m.resolver.ResourceID(ctx, focusdomain.SourceSubscriptions, in.Plan.ID.String())
	rec.ChargeDescription = fmt.Sprintf("%s (%s)", in.Plan.PlanName, in.Plan.BillingCycle)
	rec.Region = m.resolver.Region(ctx, focusdomain.SourceSubscriptions, "")

	if in.Plan.PricingModel == plandomain.PricingModelPerSeat {
		rec.PricingQuantity = decimal.NewFromInt(int64(in.Day.Seats))
		rec.PricingUnit = "seat"
	} else {
		rec.PricingQuantity = one
		rec.PricingUnit = "subscription"
	}

	rec.OriginalCurrency = rec.BillingCurrency
	rec.OriginalCost = in.Day.DailyCost
	rec.SourceRecordID = in.Plan.ID.String()
	rec.Checksum = buildChecksum(rec, fmt.Sprintf("plan:%s", in.Plan.ID))
	return rec
}

// MapCloud passes a provider billing line through largely as-is; the line
// is already daily granularity with the three cost bases reported.
func (m *mapper) MapCloud(ctx context.Context, run focusdomain.RunContext, in focusdomain.CloudInput) focusdomain.CanonicalLedgerRecord {
	line := in.Line
	rec := m.base(run, focusdomain.SourceCloud, line.Provider, line.UsageDate, in.Attribution, line.Tuple)

	rec.BilledCost = line.BilledCost
	rec.EffectiveCost = line.EffectiveCost
	rec.ListCost = line.ListCost
	if rec.EffectiveCost.IsZero() && !line.BilledCost.IsZero() {
		rec.EffectiveCost = line.BilledCost
	}
	if rec.ListCost.IsZero() && !line.BilledCost.IsZero() {
		rec.ListCost = line.BilledCost
	}
	rec.BillingCurrency = m.resolver.Currency(ctx, focusdomain.SourceCloud, line.Currency, run.Tenant.DefaultCurrency)
	rec.ServiceCategory = m.resolver.ServiceCategory(ctx, focusdomain.SourceCloud, line.ServiceCategory)
	rec.ServiceName = line.ServiceName
	rec.ResourceID = m.resolver.ResourceID(ctx, focusdomain.SourceCloud,
		line.ResourceID,
		fmt.Sprintf("%s/%s", line.Provider, line.ServiceName),
	)
	rec.ChargeDescription = line.ServiceName
	rec.Region = m.resolver.Region(ctx, focusdomain.SourceCloud, line.Region)
	rec.SKUID = line.SKUID
	rec.PricingQuantity = line.Quantity
	rec.PricingUnit = line.Unit

	rec.OriginalCurrency = rec.BillingCurrency
	rec.OriginalCost = rec.BilledCost
	rec.SourceRecordID = line.ID.String()
	rec.Checksum = buildChecksum(rec, fmt.Sprintf("line:%s", line.ID))
	return rec
}

// MapGenAI turns one consolidated cost row into a canonical row, joining
// the usage counterpart for quantity when one exists.
func (m *mapper) MapGenAI(ctx context.Context, run focusdomain.RunContext, in focusdomain.GenAIInput) focusdomain.CanonicalLedgerRecord {
	cost := in.Cost
	rec := m.base(run, focusdomain.SourceGenAI, cost.Provider, cost.UsageDate, in.Attribution, cost.Tuple)

	rec.BilledCost = cost.TotalCost
	rec.EffectiveCost = cost.TotalCost
	rec.ListCost = cost.TotalCost
	rec.BillingCurrency = m.resolver.Currency(ctx, focusdomain.SourceGenAI, cost.Currency, run.Tenant.DefaultCurrency)
	rec.ServiceCategory = m.resolver.ServiceCategory(ctx, focusdomain.SourceGenAI, "")
	rec.ServiceName = cost.Model
	rec.ResourceID = m.resolver.ResourceID(ctx, focusdomain.SourceGenAI,
		fmt.Sprintf("%s/%s", cost.Provider, cost.Model),
	)
	rec.ChargeDescription = fmt.Sprintf("%s usage (%s)", cost.Model, cost.Flows)
	rec.Region = m.resolver.Region(ctx, focusdomain.SourceGenAI, "")
	rec.PricingQuantity, rec.PricingUnit = genaiQuantity(in.Usage)

	if cost.CommitmentID != nil {
		id := *cost.CommitmentID
		typ := string(genaidomain.FlowReservedCapacity)
		rec.CommitmentDiscountID = &id
		rec.CommitmentDiscountType = &typ
	}

	rec.OriginalCurrency = rec.BillingCurrency
	rec.OriginalCost = cost.TotalCost
	rec.SourceRecordID = genaiSourceKey(cost)
	rec.Checksum = buildChecksum(rec, genaiSourceKey(cost))
	return rec
}

// base fills the fields every canonical row derives the same way: the
// charge period spans the cost date's calendar day, the invoice id is
// deterministic per tenant-month, and lineage flows through from the
// source row with a fresh run id and ingestion time.
func (m *mapper) base(
	run focusdomain.RunContext,
	source, provider string,
	day time.Time,
	attr hierarchydomain.Attribution,
	tuple lineage.Tuple,
) focusdomain.CanonicalLedgerRecord {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return focusdomain.CanonicalLedgerRecord{
		TenantID:          run.Tenant.ID,
		SourceSystem:      source,
		Provider:          provider,
		ChargePeriodStart: start,
		ChargePeriodEnd:   start.AddDate(0, 0, 1),
		InvoiceID:         m.resolver.InvoiceID(run.Tenant.ID, day),

		HierarchyEntityID:   attr.EntityID,
		HierarchyEntityName: attr.EntityName,
		HierarchyLevel:      attr.LevelCode,
		HierarchyPath:       attr.Path,
		HierarchyPathNames:  attr.PathNames,

		ExchangeRate: one,

		PipelineID:   tuple.PipelineID,
		CredentialID: tuple.CredentialID,
		RunID:        run.RunID,
		RunDate:      tuple.RunDate,
		IngestedAt:   m.clock.Now().UTC(),
	}
}

// genaiQuantity picks the dominant quantity for the flows present:
// token-metered rows report tokens, infrastructure rows compute hours,
// reserved-only rows committed units.
func genaiQuantity(usage *genaidomain.UnifiedUsage) (decimal.Decimal, string) {
	if usage == nil {
		return decimal.Zero, ""
	}
	if tokens := usage.InputTokens + usage.OutputTokens; tokens > 0 {
		return decimal.NewFromInt(tokens), "tokens"
	}
	if usage.ComputeHours.IsPositive() {
		return usage.ComputeHours, "hours"
	}
	if usage.CommittedUnits.IsPositive() {
		return usage.CommittedUnits, "units"
	}
	return decimal.Zero, ""
}

// genaiSourceKey is stable across reruns even though unified cost rows are
// rewritten with fresh ids each time.
func genaiSourceKey(cost genaidomain.UnifiedCost) string {
	return fmt.Sprintf("%s:%s:%s", cost.Provider, cost.Model, cost.UsageDate.Format(time.DateOnly))
}

// buildChecksum hashes the lineage tuple plus the business key. Two runs
// over the same raw rows produce identical checksums, which is what lets
// the unique index treat a rerun as a replace rather than a duplicate.
func buildChecksum(rec focusdomain.CanonicalLedgerRecord, entityKey string) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		rec.TenantID.String(),
		rec.PipelineID,
		rec.CredentialID,
		rec.RunDate.UTC().Format(time.RFC3339),
		rec.SourceSystem,
		entityKey,
		rec.ChargePeriodStart.Format(time.DateOnly),
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

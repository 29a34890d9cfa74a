package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	amortizeservice "github.com/smallbiznis/costlens/internal/amortize/service"
	"github.com/smallbiznis/costlens/internal/clock"
	cloudspenddomain "github.com/smallbiznis/costlens/internal/cloudspend/domain"
	cloudspendrepo "github.com/smallbiznis/costlens/internal/cloudspend/repository"
	"github.com/smallbiznis/costlens/internal/config"
	consolidateservice "github.com/smallbiznis/costlens/internal/consolidate/service"
	"github.com/smallbiznis/costlens/internal/datewindow"
	enginedomain "github.com/smallbiznis/costlens/internal/engine/domain"
	focusdomain "github.com/smallbiznis/costlens/internal/focus/domain"
	focusservice "github.com/smallbiznis/costlens/internal/focus/service"
	genaidomain "github.com/smallbiznis/costlens/internal/genai/domain"
	hierarchyservice "github.com/smallbiznis/costlens/internal/hierarchy/service"
	ledgerservice "github.com/smallbiznis/costlens/internal/ledgerwriter/service"
	"github.com/smallbiznis/costlens/internal/migration"
	plandomain "github.com/smallbiznis/costlens/internal/plan/domain"
	planrepo "github.com/smallbiznis/costlens/internal/plan/repository"
	"github.com/smallbiznis/costlens/internal/reference"
	tenantdomain "github.com/smallbiznis/costlens/internal/tenant/domain"
	tenantrepo "github.com/smallbiznis/costlens/internal/tenant/repository"
	"github.com/smallbiznis/costlens/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type engineFixture struct {
	svc      enginedomain.Service
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	tenantID snowflake.ID
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	policy := config.NewStaticPolicyHolder(config.DefaultEnginePolicy())
	resolver := reference.NewStaticResolver("USD")
	tenants := tenantrepo.Provide(db)

	svc := NewService(Params{
		Log:     log,
		Clock:   fake,
		Policy:  policy,
		Runs:    repository.ProvideStore[enginedomain.PipelineRun](db),
		Tenants: tenants,
		Plans:   planrepo.Provide(db),
		Cloud:   cloudspendrepo.Provide(db),
		Calculator: amortizeservice.NewCalculator(amortizeservice.Params{
			Log: log, Policy: policy, Resolver: resolver,
		}),
		Consolidator: consolidateservice.NewService(consolidateservice.Params{
			DB: db, Log: log, GenID: node, Clock: fake, Resolver: resolver,
		}),
		Hierarchy: hierarchyservice.NewService(hierarchyservice.Params{
			Log: log, TenantRepo: tenants,
		}),
		Mapper: focusservice.NewMapper(focusservice.Params{
			Log: log, Clock: fake, Resolver: resolver,
		}),
		Writer: ledgerservice.NewWriter(ledgerservice.Params{
			DB: db, Log: log, GenID: node,
		}),
	})

	tenantID := node.Generate()
	require.NoError(t, db.Create(&tenantdomain.Tenant{
		ID: tenantID, Slug: "acme", Name: "Acme", DefaultCurrency: "USD",
	}).Error)

	return &engineFixture{svc: svc, db: db, node: node, clock: fake, tenantID: tenantID}
}

func (f *engineFixture) ledgerChecksums(t *testing.T, source string) []string {
	t.Helper()
	var sums []string
	require.NoError(t, f.db.Model(&focusdomain.CanonicalLedgerRecord{}).
		Where("tenant_id = ? AND source_system = ?", f.tenantID, source).
		Order("checksum ASC").
		Pluck("checksum", &sums).Error)
	return sums
}

func TestRunRejectsBadParameters(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	window, _ := datewindow.Parse("2024-06-01", "2024-06-30")

	_, err := f.svc.Run(ctx, f.tenantID, "payroll", window)
	assert.ErrorIs(t, err, enginedomain.ErrUnknownDomain)

	_, err = f.svc.Run(ctx, f.node.Generate(), enginedomain.DomainCloud, window)
	assert.ErrorIs(t, err, enginedomain.ErrInvalidTenant)

	long, _ := datewindow.Parse("2024-01-01", "2025-06-30")
	_, err = f.svc.Run(ctx, f.tenantID, enginedomain.DomainCloud, long)
	assert.ErrorIs(t, err, datewindow.ErrWindowTooLong)

	inverted, _ := datewindow.Parse("2024-06-30", "2024-06-01")
	_, err = f.svc.Run(ctx, f.tenantID, enginedomain.DomainCloud, inverted)
	assert.ErrorIs(t, err, datewindow.ErrInvalidWindow)

	// Parameter errors never leave a run row behind.
	var count int64
	require.NoError(t, f.db.Model(&enginedomain.PipelineRun{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunSubscriptionsEndToEnd(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&plandomain.SubscriptionPlan{
		ID:           f.node.Generate(),
		TenantID:     f.tenantID,
		Provider:     "github",
		PlanName:     "Team",
		BillingCycle: plandomain.BillingCycleMonthly,
		UnitPrice:    decimal.RequireFromString("290"),
		PricingModel: plandomain.PricingModelFlatFee,
		Seats:        1,
		DiscountType: plandomain.DiscountTypeNone,
		Currency:     "USD",
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:       plandomain.PlanStatusActive,
	}).Error)

	window, _ := datewindow.Parse("2024-06-01", "2024-06-30")
	run, err := f.svc.Run(ctx, f.tenantID, enginedomain.DomainSubscriptions, window)
	require.NoError(t, err)
	assert.Equal(t, enginedomain.RunStatusSucceeded, run.Status)
	assert.Equal(t, int64(30), run.RowsWritten)
	require.NotNil(t, run.FinishedAt)

	fetched, err := f.svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, enginedomain.RunStatusSucceeded, fetched.Status)

	var rec focusdomain.CanonicalLedgerRecord
	require.NoError(t, f.db.
		Where("tenant_id = ? AND source_system = ?", f.tenantID, focusdomain.SourceSubscriptions).
		Order("charge_period_start ASC").First(&rec).Error)
	assert.True(t, rec.BilledCost.Equal(decimal.RequireFromString("9.666667")), "got %s", rec.BilledCost)
	assert.Equal(t, "USD", rec.BillingCurrency)
	assert.Equal(t, run.ID, rec.RunID)
}

func TestRunSubscriptionsRerunIsIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&plandomain.SubscriptionPlan{
		ID:           f.node.Generate(),
		TenantID:     f.tenantID,
		Provider:     "github",
		PlanName:     "Team",
		BillingCycle: plandomain.BillingCycleMonthly,
		UnitPrice:    decimal.RequireFromString("160"),
		PricingModel: plandomain.PricingModelFlatFee,
		Seats:        1,
		DiscountType: plandomain.DiscountTypeNone,
		Currency:     "USD",
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:       plandomain.PlanStatusActive,
	}).Error)

	window, _ := datewindow.Parse("2024-02-01", "2024-02-29")

	first, err := f.svc.Run(ctx, f.tenantID, enginedomain.DomainSubscriptions, window)
	require.NoError(t, err)
	firstSums := f.ledgerChecksums(t, focusdomain.SourceSubscriptions)

	f.clock.Advance(2 * time.Hour)
	second, err := f.svc.Run(ctx, f.tenantID, enginedomain.DomainSubscriptions, window)
	require.NoError(t, err)
	secondSums := f.ledgerChecksums(t, focusdomain.SourceSubscriptions)

	assert.Equal(t, first.RowsWritten, second.RowsWritten)
	assert.Equal(t, firstSums, secondSums)

	var count int64
	require.NoError(t, f.db.Model(&focusdomain.CanonicalLedgerRecord{}).Count(&count).Error)
	assert.Equal(t, first.RowsWritten, count)
}

func TestRunCloudEndToEnd(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&cloudspenddomain.BillingLine{
		ID:            f.node.Generate(),
		TenantID:      f.tenantID,
		Provider:      "aws",
		AccountID:     "123456789012",
		ServiceName:   "AmazonEC2",
		Region:        "us-east-1",
		ResourceID:    "i-0abc",
		UsageDate:     time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Quantity:      decimal.RequireFromString("24"),
		Unit:          "Hrs",
		ListCost:      decimal.RequireFromString("12"),
		BilledCost:    decimal.RequireFromString("10.80"),
		EffectiveCost: decimal.RequireFromString("10.80"),
		Currency:      "USD",
	}).Error)

	window, _ := datewindow.Parse("2024-06-01", "2024-06-30")
	run, err := f.svc.Run(ctx, f.tenantID, enginedomain.DomainCloud, window)
	require.NoError(t, err)
	assert.Equal(t, int64(1), run.RowsWritten)

	var rec focusdomain.CanonicalLedgerRecord
	require.NoError(t, f.db.
		Where("tenant_id = ? AND source_system = ?", f.tenantID, focusdomain.SourceCloud).
		First(&rec).Error)
	assert.Equal(t, "us-east-1", rec.Region)
	assert.Equal(t, "i-0abc", rec.ResourceID)
	assert.True(t, rec.ListCost.Equal(decimal.RequireFromString("12")))
}

func TestRunGenAIEndToEnd(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, f.db.Create(&genaidomain.PaygUsage{
		ID: f.node.Generate(), TenantID: f.tenantID,
		Provider: "anthropic", Model: "claude-sonnet", UsageDate: day,
		InputTokens: 1000, OutputTokens: 500, Requests: 20,
	}).Error)
	require.NoError(t, f.db.Create(&genaidomain.PaygCost{
		ID: f.node.Generate(), TenantID: f.tenantID,
		Provider: "anthropic", Model: "claude-sonnet", UsageDate: day,
		Cost: decimal.RequireFromString("12.50"), Currency: "USD",
	}).Error)
	require.NoError(t, f.db.Create(&genaidomain.ReservedCost{
		ID: f.node.Generate(), TenantID: f.tenantID,
		Provider: "anthropic", Model: "claude-sonnet", UsageDate: day,
		Cost: decimal.RequireFromString("30"), Currency: "USD", CommitmentID: "commit-1",
	}).Error)

	window, _ := datewindow.Parse("2024-06-01", "2024-06-30")
	run, err := f.svc.Run(ctx, f.tenantID, enginedomain.DomainGenAI, window)
	require.NoError(t, err)
	assert.Equal(t, enginedomain.RunStatusSucceeded, run.Status)
	assert.Equal(t, int64(1), run.RowsWritten)

	var rec focusdomain.CanonicalLedgerRecord
	require.NoError(t, f.db.
		Where("tenant_id = ? AND source_system = ?", f.tenantID, focusdomain.SourceGenAI).
		First(&rec).Error)
	assert.True(t, rec.BilledCost.Equal(decimal.RequireFromString("42.5")), "got %s", rec.BilledCost)
	assert.Equal(t, "claude-sonnet", rec.ServiceName)
	assert.True(t, rec.PricingQuantity.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "tokens", rec.PricingUnit)
	require.NotNil(t, rec.CommitmentDiscountID)
	assert.Equal(t, "commit-1", *rec.CommitmentDiscountID)
}

func TestListRunsNewestFirst(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	window, _ := datewindow.Parse("2024-06-01", "2024-06-30")
	first, err := f.svc.Run(ctx, f.tenantID, enginedomain.DomainCloud, window)
	require.NoError(t, err)
	second, err := f.svc.Run(ctx, f.tenantID, enginedomain.DomainSubscriptions, window)
	require.NoError(t, err)

	runs, err := f.svc.ListRuns(ctx, f.tenantID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	runs, err = f.svc.ListRuns(ctx, f.tenantID, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestGetRunNotFound(t *testing.T) {
	f := newEngineFixture(t)
	_, err := f.svc.GetRun(context.Background(), "01J0MISSING")
	assert.ErrorIs(t, err, enginedomain.ErrRunNotFound)
}

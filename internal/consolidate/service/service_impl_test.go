package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costlens/internal/clock"
	consolidatedomain "github.com/smallbiznis/costlens/internal/consolidate/domain"
	"github.com/smallbiznis/costlens/internal/datewindow"
	genaidomain "github.com/smallbiznis/costlens/internal/genai/domain"
	"github.com/smallbiznis/costlens/internal/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&genaidomain.PaygUsage{},
		&genaidomain.PaygCost{},
		&genaidomain.ReservedUsage{},
		&genaidomain.ReservedCost{},
		&genaidomain.InfraUsage{},
		&genaidomain.InfraCost{},
		&genaidomain.UnifiedUsage{},
		&genaidomain.UnifiedCost{},
		&consolidatedomain.StageRun{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)),
		Resolver: reference.NewStaticResolver("USD"),
	}).(*Service)
	return svc, db, node
}

func seedFlows(t *testing.T, db *gorm.DB, node *snowflake.Node, tenantID snowflake.ID, day time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&genaidomain.PaygUsage{
		ID: node.Generate(), TenantID: tenantID,
		Provider: "anthropic", Model: "claude-sonnet", UsageDate: day,
		InputTokens: 1000, OutputTokens: 500, Requests: 20,
	}).Error)
	require.NoError(t, db.Create(&genaidomain.ReservedUsage{
		ID: node.Generate(), TenantID: tenantID,
		Provider: "anthropic", Model: "claude-sonnet", UsageDate: day,
		Units: decimal.RequireFromString("4"), CommitmentID: "commit-1",
	}).Error)
	require.NoError(t, db.Create(&genaidomain.InfraUsage{
		ID: node.Generate(), TenantID: tenantID,
		Provider: "anthropic", Model: "claude-sonnet", UsageDate: day,
		ComputeHours: decimal.RequireFromString("2.5"),
	}).Error)

	require.NoError(t, db.Create(&genaidomain.PaygCost{
		ID: node.Generate(), TenantID: tenantID,
		Provider: "anthropic", Model: "claude-sonnet", UsageDate: day,
		Cost: decimal.RequireFromString("12.50"), Currency: "USD",
	}).Error)
	require.NoError(t, db.Create(&genaidomain.ReservedCost{
		ID: node.Generate(), TenantID: tenantID,
		Provider: "anthropic", Model: "claude-sonnet", UsageDate: day,
		Cost: decimal.RequireFromString("30"), Currency: "USD", CommitmentID: "commit-1",
	}).Error)
	require.NoError(t, db.Create(&genaidomain.InfraCost{
		ID: node.Generate(), TenantID: tenantID,
		Provider: "anthropic", Model: "claude-sonnet", UsageDate: day,
		Cost: decimal.RequireFromString("7.25"), Currency: "USD",
	}).Error)
}

func TestConsolidateCostsRequiresUsageStage(t *testing.T) {
	svc, db, node := newTestService(t)
	tenantID := node.Generate()
	window, _ := datewindow.Parse("2024-06-01", "2024-06-30")

	err := svc.ConsolidateCosts(context.Background(), tenantID, "USD", window)
	assert.ErrorIs(t, err, consolidatedomain.ErrStageOrderViolation)

	var count int64
	require.NoError(t, db.Model(&genaidomain.UnifiedCost{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConsolidateMergesAllFlows(t *testing.T) {
	svc, _, node := newTestService(t)
	tenantID := node.Generate()
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	window, _ := datewindow.Parse("2024-06-01", "2024-06-30")
	ctx := context.Background()

	seedFlows(t, svc.db, node, tenantID, day)

	require.NoError(t, svc.ConsolidateUsage(ctx, tenantID, window))
	require.NoError(t, svc.ConsolidateCosts(ctx, tenantID, "USD", window))

	usage, err := svc.ListUnifiedUsage(ctx, tenantID, window)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, int64(1000), usage[0].InputTokens)
	assert.Equal(t, int64(500), usage[0].OutputTokens)
	assert.True(t, usage[0].CommittedUnits.Equal(decimal.RequireFromString("4")))
	assert.True(t, usage[0].ComputeHours.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, "payg,reserved_capacity,infrastructure", usage[0].Flows)

	costs, err := svc.ListUnifiedCosts(ctx, tenantID, window)
	require.NoError(t, err)
	require.Len(t, costs, 1)
	assert.True(t, costs[0].TotalCost.Equal(decimal.RequireFromString("49.75")), "got %s", costs[0].TotalCost)
	assert.Equal(t, "USD", costs[0].Currency)
	require.NotNil(t, costs[0].CommitmentID)
	assert.Equal(t, "commit-1", *costs[0].CommitmentID)
}

func TestUsageRerunInvalidatesCostStage(t *testing.T) {
	svc, db, node := newTestService(t)
	tenantID := node.Generate()
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	window, _ := datewindow.Parse("2024-06-01", "2024-06-30")
	ctx := context.Background()

	seedFlows(t, db, node, tenantID, day)
	require.NoError(t, svc.ConsolidateUsage(ctx, tenantID, window))
	require.NoError(t, svc.ConsolidateCosts(ctx, tenantID, "USD", window))

	// Rerunning Stage A clears the Stage B marker for the scope.
	require.NoError(t, svc.ConsolidateUsage(ctx, tenantID, window))

	var count int64
	require.NoError(t, db.Model(&consolidatedomain.StageRun{}).
		Where("tenant_id = ? AND stage = ?", tenantID, consolidatedomain.StageCost).
		Count(&count).Error)
	assert.Zero(t, count)
}

func TestConsolidateRerunIsIdempotent(t *testing.T) {
	svc, _, node := newTestService(t)
	tenantID := node.Generate()
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	window, _ := datewindow.Parse("2024-06-01", "2024-06-30")
	ctx := context.Background()

	seedFlows(t, svc.db, node, tenantID, day)

	require.NoError(t, svc.ConsolidateUsage(ctx, tenantID, window))
	require.NoError(t, svc.ConsolidateCosts(ctx, tenantID, "USD", window))
	first, err := svc.ListUnifiedCosts(ctx, tenantID, window)
	require.NoError(t, err)

	require.NoError(t, svc.ConsolidateUsage(ctx, tenantID, window))
	require.NoError(t, svc.ConsolidateCosts(ctx, tenantID, "USD", window))
	second, err := svc.ListUnifiedCosts(ctx, tenantID, window)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].TotalCost.Equal(second[i].TotalCost))
		assert.Equal(t, first[i].Flows, second[i].Flows)
		assert.Equal(t, first[i].Currency, second[i].Currency)
	}
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costlens/internal/clock"
	consolidatedomain "github.com/smallbiznis/costlens/internal/consolidate/domain"
	"github.com/smallbiznis/costlens/internal/datewindow"
	genaidomain "github.com/smallbiznis/costlens/internal/genai/domain"
	"github.com/smallbiznis/costlens/internal/lineage"
	"github.com/smallbiznis/costlens/internal/reference"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	resolver *reference.Resolver
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Resolver *reference.Resolver
}

func NewService(p Params) consolidatedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("consolidate.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		resolver: p.Resolver,
	}
}

// mergeKey identifies one unified row: (provider, model/resource, day).
type mergeKey struct {
	Provider string
	Model    string
	Date     string
}

func keyOf(provider, model string, day time.Time) mergeKey {
	return mergeKey{
		Provider: provider,
		Model:    model,
		Date:     datewindow.Day(day).Format(time.DateOnly),
	}
}

func (k mergeKey) day() time.Time {
	d, _ := time.Parse(time.DateOnly, k.Date)
	return d
}

func sortedKeys[V any](m map[mergeKey]V) []mergeKey {
	keys := make([]mergeKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Provider != keys[j].Provider {
			return keys[i].Provider < keys[j].Provider
		}
		if keys[i].Model != keys[j].Model {
			return keys[i].Model < keys[j].Model
		}
		return keys[i].Date < keys[j].Date
	})
	return keys
}

// ConsolidateUsage is Stage A: merge the three flows' usage rows into
// genai_unified_usage for the scope. Rerunning invalidates any prior cost
// stage marker, forcing Stage B to follow again.
func (s *Service) ConsolidateUsage(ctx context.Context, tenantID snowflake.ID, window datewindow.Window) error {
	scope := window.Key()

	var payg []genaidomain.PaygUsage
	if err := s.rawRows(ctx, tenantID, window, &payg); err != nil {
		return fmt.Errorf("consolidate usage: %w", err)
	}
	var reserved []genaidomain.ReservedUsage
	if err := s.rawRows(ctx, tenantID, window, &reserved); err != nil {
		return fmt.Errorf("consolidate usage: %w", err)
	}
	var infra []genaidomain.InfraUsage
	if err := s.rawRows(ctx, tenantID, window, &infra); err != nil {
		return fmt.Errorf("consolidate usage: %w", err)
	}

	merged := make(map[mergeKey]*genaidomain.UnifiedUsage)
	upsert := func(provider, model string, day time.Time, flow genaidomain.Flow, tuple lineage.Tuple) *genaidomain.UnifiedUsage {
		k := keyOf(provider, model, day)
		row, ok := merged[k]
		if !ok {
			row = &genaidomain.UnifiedUsage{
				TenantID:  tenantID,
				Provider:  provider,
				Model:     model,
				UsageDate: k.day(),
				Tuple:     tuple,
			}
			merged[k] = row
		}
		row.Flows = appendFlow(row.Flows, flow)
		return row
	}

	for _, u := range payg {
		row := upsert(u.Provider, u.Model, u.UsageDate, genaidomain.FlowPayAsYouGo, u.Tuple)
		row.InputTokens += u.InputTokens
		row.OutputTokens += u.OutputTokens
		row.Requests += u.Requests
	}
	for _, u := range reserved {
		row := upsert(u.Provider, u.Model, u.UsageDate, genaidomain.FlowReservedCapacity, u.Tuple)
		row.CommittedUnits = row.CommittedUnits.Add(u.Units)
	}
	for _, u := range infra {
		row := upsert(u.Provider, u.Model, u.UsageDate, genaidomain.FlowInfrastructure, u.Tuple)
		row.ComputeHours = row.ComputeHours.Add(u.ComputeHours)
	}

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("tenant_id = ? AND usage_date >= ? AND usage_date < ?", tenantID, window.Start, window.NextDay()).
			Delete(&genaidomain.UnifiedUsage{}).Error; err != nil {
			return err
		}
		for _, k := range sortedKeys(merged) {
			row := merged[k]
			row.ID = s.genID.Generate()
			row.CreatedAt = now
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return s.markStage(tx, tenantID, scope, consolidatedomain.StageUsage, now)
	})
	if err != nil {
		return fmt.Errorf("consolidate usage: %w", err)
	}

	s.log.Info("usage stage committed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("scope", scope),
		zap.Int("rows", len(merged)),
	)
	return nil
}

// ConsolidateCosts is Stage B: merge the three flows' cost rows, summing
// contributions that share a key. Refuses to run before Stage A has
// committed for the identical scope.
func (s *Service) ConsolidateCosts(ctx context.Context, tenantID snowflake.ID, tenantCurrency string, window datewindow.Window) error {
	scope := window.Key()

	done, err := s.stageDone(ctx, tenantID, scope, consolidatedomain.StageUsage)
	if err != nil {
		return fmt.Errorf("consolidate costs: %w", err)
	}
	if !done {
		return fmt.Errorf("consolidate costs: %w", consolidatedomain.ErrStageOrderViolation)
	}

	var payg []genaidomain.PaygCost
	if err := s.rawRows(ctx, tenantID, window, &payg); err != nil {
		return fmt.Errorf("consolidate costs: %w", err)
	}
	var reserved []genaidomain.ReservedCost
	if err := s.rawRows(ctx, tenantID, window, &reserved); err != nil {
		return fmt.Errorf("consolidate costs: %w", err)
	}
	var infra []genaidomain.InfraCost
	if err := s.rawRows(ctx, tenantID, window, &infra); err != nil {
		return fmt.Errorf("consolidate costs: %w", err)
	}

	merged := make(map[mergeKey]*genaidomain.UnifiedCost)
	add := func(provider, model string, day time.Time, cost decimal.Decimal, currency string, flow genaidomain.Flow, tuple lineage.Tuple) *genaidomain.UnifiedCost {
		k := keyOf(provider, model, day)
		resolved := s.resolver.Currency(ctx, "genai", currency, tenantCurrency)
		row, ok := merged[k]
		if !ok {
			row = &genaidomain.UnifiedCost{
				TenantID:  tenantID,
				Provider:  provider,
				Model:     model,
				UsageDate: k.day(),
				Currency:  resolved,
				Tuple:     tuple,
			}
			merged[k] = row
		} else if row.Currency != resolved {
			// Flow order is deterministic, so the first flow's currency
			// wins on every rerun.
			s.log.Warn("mixed currencies for unified cost key",
				zap.String("provider", provider),
				zap.String("model", model),
				zap.String("kept", row.Currency),
				zap.String("dropped", resolved),
			)
		}
		row.TotalCost = row.TotalCost.Add(cost)
		row.Flows = appendFlow(row.Flows, flow)
		return row
	}

	for _, c := range payg {
		add(c.Provider, c.Model, c.UsageDate, c.Cost, c.Currency, genaidomain.FlowPayAsYouGo, c.Tuple)
	}
	for _, c := range reserved {
		row := add(c.Provider, c.Model, c.UsageDate, c.Cost, c.Currency, genaidomain.FlowReservedCapacity, c.Tuple)
		if row.CommitmentID == nil && c.CommitmentID != "" {
			commitment := c.CommitmentID
			row.CommitmentID = &commitment
		}
	}
	for _, c := range infra {
		add(c.Provider, c.Model, c.UsageDate, c.Cost, c.Currency, genaidomain.FlowInfrastructure, c.Tuple)
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("tenant_id = ? AND usage_date >= ? AND usage_date < ?", tenantID, window.Start, window.NextDay()).
			Delete(&genaidomain.UnifiedCost{}).Error; err != nil {
			return err
		}
		for _, k := range sortedKeys(merged) {
			row := merged[k]
			row.ID = s.genID.Generate()
			row.CreatedAt = now
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return s.markStage(tx, tenantID, scope, consolidatedomain.StageCost, now)
	})
	if err != nil {
		return fmt.Errorf("consolidate costs: %w", err)
	}

	s.log.Info("cost stage committed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("scope", scope),
		zap.Int("rows", len(merged)),
	)
	return nil
}

// ListUnifiedCosts returns the Stage B output for downstream mapping.
func (s *Service) ListUnifiedCosts(ctx context.Context, tenantID snowflake.ID, window datewindow.Window) ([]genaidomain.UnifiedCost, error) {
	var rows []genaidomain.UnifiedCost
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND usage_date >= ? AND usage_date < ?", tenantID, window.Start, window.NextDay()).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListUnifiedUsage returns the Stage A output, used to join quantities
// onto cost rows during mapping.
func (s *Service) ListUnifiedUsage(ctx context.Context, tenantID snowflake.ID, window datewindow.Window) ([]genaidomain.UnifiedUsage, error) {
	var rows []genaidomain.UnifiedUsage
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND usage_date >= ? AND usage_date < ?", tenantID, window.Start, window.NextDay()).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (s *Service) rawRows(ctx context.Context, tenantID snowflake.ID, window datewindow.Window, out any) error {
	return s.db.WithContext(ctx).
		Where("tenant_id = ? AND usage_date >= ? AND usage_date < ?", tenantID, window.Start, window.NextDay()).
		Order("id ASC").
		Find(out).Error
}

func (s *Service) stageDone(ctx context.Context, tenantID snowflake.ID, scope string, stage consolidatedomain.Stage) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&consolidatedomain.StageRun{}).
		Where("tenant_id = ? AND scope = ? AND stage = ?", tenantID, scope, stage).
		Count(&count).Error
	return count > 0, err
}

// markStage records stage completion. Completing the usage stage clears
// the cost marker so Stage B must rerun against the fresh Stage A output.
func (s *Service) markStage(tx *gorm.DB, tenantID snowflake.ID, scope string, stage consolidatedomain.Stage, now time.Time) error {
	stages := []consolidatedomain.Stage{stage}
	if stage == consolidatedomain.StageUsage {
		stages = append(stages, consolidatedomain.StageCost)
	}
	if err := tx.
		Where("tenant_id = ? AND scope = ? AND stage IN ?", tenantID, scope, stages).
		Delete(&consolidatedomain.StageRun{}).Error; err != nil {
		return err
	}
	return tx.Create(&consolidatedomain.StageRun{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Scope:       scope,
		Stage:       stage,
		CompletedAt: now,
	}).Error
}

func appendFlow(flows string, flow genaidomain.Flow) string {
	if flows == "" {
		return string(flow)
	}
	if strings.Contains(flows, string(flow)) {
		return flows
	}
	return flows + "," + string(flow)
}

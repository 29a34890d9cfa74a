package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	amortizedomain "github.com/smallbiznis/costlens/internal/amortize/domain"
	"github.com/smallbiznis/costlens/internal/clock"
	clouddomain "github.com/smallbiznis/costlens/internal/cloudspend/domain"
	"github.com/smallbiznis/costlens/internal/config"
	consolidatedomain "github.com/smallbiznis/costlens/internal/consolidate/domain"
	"github.com/smallbiznis/costlens/internal/datewindow"
	enginedomain "github.com/smallbiznis/costlens/internal/engine/domain"
	focusdomain "github.com/smallbiznis/costlens/internal/focus/domain"
	genaidomain "github.com/smallbiznis/costlens/internal/genai/domain"
	hierarchydomain "github.com/smallbiznis/costlens/internal/hierarchy/domain"
	ledgerdomain "github.com/smallbiznis/costlens/internal/ledgerwriter/domain"
	obsmetrics "github.com/smallbiznis/costlens/internal/observability/metrics"
	plandomain "github.com/smallbiznis/costlens/internal/plan/domain"
	tenantdomain "github.com/smallbiznis/costlens/internal/tenant/domain"
	"github.com/smallbiznis/costlens/pkg/db/option"
	"github.com/smallbiznis/costlens/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// expandConcurrency caps the plan fan-out per run.
const expandConcurrency = 8

// Run ids must sort by start time even within one millisecond, so ids are
// drawn from a shared monotonic entropy source.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(crand.Reader, 0)
)

func newRunID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

type Service struct {
	log          *zap.Logger
	clock        clock.Clock
	policy       *config.PolicyHolder
	runs         repository.Repository[enginedomain.PipelineRun]
	tenants      tenantdomain.Repository
	plans        plandomain.Repository
	cloud        clouddomain.Repository
	calculator   amortizedomain.Calculator
	consolidator consolidatedomain.Service
	hierarchy    hierarchydomain.Service
	mapper       focusdomain.Mapper
	writer       ledgerdomain.Writer
	metrics      *obsmetrics.Metrics
}

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Policy       *config.PolicyHolder
	Runs         repository.Repository[enginedomain.PipelineRun]
	Tenants      tenantdomain.Repository
	Plans        plandomain.Repository
	Cloud        clouddomain.Repository
	Calculator   amortizedomain.Calculator
	Consolidator consolidatedomain.Service
	Hierarchy    hierarchydomain.Service
	Mapper       focusdomain.Mapper
	Writer       ledgerdomain.Writer
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

func NewService(p Params) enginedomain.Service {
	return &Service{
		log:          p.Log.Named("engine.service"),
		clock:        p.Clock,
		policy:       p.Policy,
		runs:         p.Runs,
		tenants:      p.Tenants,
		plans:        p.Plans,
		cloud:        p.Cloud,
		calculator:   p.Calculator,
		consolidator: p.Consolidator,
		hierarchy:    p.Hierarchy,
		mapper:       p.Mapper,
		writer:       p.Writer,
		metrics:      p.Metrics,
	}
}

// Run validates parameters, records a run row, and executes the domain's
// pipeline. Validation failures return before any run row is written.
func (s *Service) Run(ctx context.Context, tenantID snowflake.ID, domain string, window datewindow.Window) (*enginedomain.PipelineRun, error) {
	if !enginedomain.ValidDomain(domain) {
		return nil, fmt.Errorf("%w: %s", enginedomain.ErrUnknownDomain, domain)
	}
	if err := window.Validate(s.policy.Get().MaxWindowDays); err != nil {
		return nil, err
	}
	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenantdomain.ErrTenantNotFound) {
			return nil, fmt.Errorf("%w: %s", enginedomain.ErrInvalidTenant, tenantID)
		}
		return nil, err
	}

	run := &enginedomain.PipelineRun{
		ID:          newRunID(s.clock.Now()),
		TenantID:    tenantID,
		Domain:      domain,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		Status:      enginedomain.RunStatusRunning,
		StartedAt:   s.clock.Now(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	s.log.Info("run started",
		zap.String("run_id", run.ID),
		zap.String("tenant_id", tenantID.String()),
		zap.String("domain", domain),
		zap.String("window", window.Key()),
	)

	rows, runErr := s.execute(ctx, tenant, run, window)
	finished := s.clock.Now()
	if runErr != nil {
		run.Status = enginedomain.RunStatusFailed
		run.Error = runErr.Error()
		run.FinishedAt = &finished
		if err := s.runs.Update(ctx, run.ID, run); err != nil {
			s.log.Error("run status update failed", zap.String("run_id", run.ID), zap.Error(err))
		}
		s.metrics.RecordRunFailed(ctx, domain, stageOf(runErr))
		s.log.Error("run failed",
			zap.String("run_id", run.ID),
			zap.String("domain", domain),
			zap.Error(runErr),
		)
		return run, runErr
	}

	run.Status = enginedomain.RunStatusSucceeded
	run.RowsWritten = rows
	run.FinishedAt = &finished
	if err := s.runs.Update(ctx, run.ID, run); err != nil {
		return run, err
	}
	s.metrics.RecordRunCompleted(ctx, domain)
	s.log.Info("run succeeded",
		zap.String("run_id", run.ID),
		zap.String("domain", domain),
		zap.Int64("rows_written", rows),
	)
	return run, nil
}

// GetRun looks up one run by id.
func (s *Service) GetRun(ctx context.Context, runID string) (*enginedomain.PipelineRun, error) {
	run, err := s.runs.FindOne(ctx, &enginedomain.PipelineRun{ID: runID})
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, enginedomain.ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns the tenant's most recent runs, newest first. ULID ids
// sort by start time, so ordering by id is ordering by time.
func (s *Service) ListRuns(ctx context.Context, tenantID snowflake.ID, limit int) ([]*enginedomain.PipelineRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.runs.Find(ctx, &enginedomain.PipelineRun{TenantID: tenantID},
		option.WithOrder("id DESC"),
		option.WithLimit(limit),
	)
}

func (s *Service) execute(ctx context.Context, tenant *tenantdomain.Tenant, run *enginedomain.PipelineRun, window datewindow.Window) (int64, error) {
	rc := focusdomain.RunContext{Tenant: tenant, RunID: run.ID}
	switch run.Domain {
	case enginedomain.DomainSubscriptions:
		return s.runSubscriptions(ctx, rc, window)
	case enginedomain.DomainCloud:
		return s.runCloud(ctx, rc, window)
	default:
		return s.runGenAI(ctx, rc, window)
	}
}

// runSubscriptions expands every overlapping plan into daily records,
// fanning out across plans, then maps and replaces the ledger scope.
func (s *Service) runSubscriptions(ctx context.Context, rc focusdomain.RunContext, window datewindow.Window) (int64, error) {
	plans, err := s.plans.ListOverlapping(ctx, rc.Tenant.ID, window)
	if err != nil {
		return 0, fmt.Errorf("amortize: %w", err)
	}
	tree, err := s.hierarchy.Load(ctx, rc.Tenant.ID)
	if err != nil {
		return 0, fmt.Errorf("map: %w", err)
	}

	perPlan := make([][]focusdomain.CanonicalLedgerRecord, len(plans))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(expandConcurrency)
	for i, plan := range plans {
		i, plan := i, plan
		eg.Go(func() error {
			days, err := s.calculator.Expand(egctx, plan, rc.Tenant.DefaultCurrency, window)
			if err != nil {
				return fmt.Errorf("amortize: %w", err)
			}
			attr := tree.Attribute(hierarchydomain.EntityTypePlan, plan.ID.String())
			records := make([]focusdomain.CanonicalLedgerRecord, 0, len(days))
			for _, day := range days {
				records = append(records, s.mapper.MapSubscription(egctx, rc, focusdomain.SubscriptionInput{
					Plan:        plan,
					Day:         day,
					Attribution: attr,
				}))
			}
			perPlan[i] = records
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	var records []focusdomain.CanonicalLedgerRecord
	for _, rs := range perPlan {
		records = append(records, rs...)
	}
	return s.replace(ctx, rc, focusdomain.SourceSubscriptions, window, records)
}

// runCloud maps provider billing lines straight through; they arrive at
// daily granularity already.
func (s *Service) runCloud(ctx context.Context, rc focusdomain.RunContext, window datewindow.Window) (int64, error) {
	lines, err := s.cloud.ListByWindow(ctx, rc.Tenant.ID, window)
	if err != nil {
		return 0, fmt.Errorf("map: %w", err)
	}
	tree, err := s.hierarchy.Load(ctx, rc.Tenant.ID)
	if err != nil {
		return 0, fmt.Errorf("map: %w", err)
	}

	records := make([]focusdomain.CanonicalLedgerRecord, 0, len(lines))
	for _, line := range lines {
		entity := line.ResourceID
		if entity == "" {
			entity = line.AccountID
		}
		records = append(records, s.mapper.MapCloud(ctx, rc, focusdomain.CloudInput{
			Line:        line,
			Attribution: tree.Attribute(hierarchydomain.EntityTypeCloudResource, entity),
		}))
	}
	return s.replace(ctx, rc, focusdomain.SourceCloud, window, records)
}

// runGenAI consolidates usage then costs (strictly in that order), joins
// quantities back onto cost rows, and maps the unified output.
func (s *Service) runGenAI(ctx context.Context, rc focusdomain.RunContext, window datewindow.Window) (int64, error) {
	if err := s.consolidator.ConsolidateUsage(ctx, rc.Tenant.ID, window); err != nil {
		return 0, fmt.Errorf("consolidate: %w", err)
	}
	if err := s.consolidator.ConsolidateCosts(ctx, rc.Tenant.ID, rc.Tenant.DefaultCurrency, window); err != nil {
		return 0, fmt.Errorf("consolidate: %w", err)
	}

	costs, err := s.consolidator.ListUnifiedCosts(ctx, rc.Tenant.ID, window)
	if err != nil {
		return 0, fmt.Errorf("map: %w", err)
	}
	usages, err := s.consolidator.ListUnifiedUsage(ctx, rc.Tenant.ID, window)
	if err != nil {
		return 0, fmt.Errorf("map: %w", err)
	}
	tree, err := s.hierarchy.Load(ctx, rc.Tenant.ID)
	if err != nil {
		return 0, fmt.Errorf("map: %w", err)
	}

	type usageKey struct {
		Provider, Model, Date string
	}
	byKey := make(map[usageKey]*genaidomain.UnifiedUsage, len(usages))
	for i := range usages {
		u := &usages[i]
		byKey[usageKey{u.Provider, u.Model, u.UsageDate.Format(time.DateOnly)}] = u
	}

	records := make([]focusdomain.CanonicalLedgerRecord, 0, len(costs))
	for _, cost := range costs {
		usage := byKey[usageKey{cost.Provider, cost.Model, cost.UsageDate.Format(time.DateOnly)}]
		records = append(records, s.mapper.MapGenAI(ctx, rc, focusdomain.GenAIInput{
			Cost:        cost,
			Usage:       usage,
			Attribution: tree.Attribute(hierarchydomain.EntityTypeGenAIModel, cost.Provider+"/"+cost.Model),
		}))
	}
	return s.replace(ctx, rc, focusdomain.SourceGenAI, window, records)
}

func (s *Service) replace(ctx context.Context, rc focusdomain.RunContext, source string, window datewindow.Window, records []focusdomain.CanonicalLedgerRecord) (int64, error) {
	rows, err := s.writer.Replace(ctx, ledgerdomain.Scope{
		TenantID:     rc.Tenant.ID,
		SourceSystem: source,
		Window:       window,
	}, records)
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// stageOf extracts the pipeline stage tag from a wrapped run error.
func stageOf(err error) string {
	msg := err.Error()
	for _, stage := range []string{"amortize", "consolidate", "map", "write"} {
		if strings.HasPrefix(msg, stage+":") {
			return stage
		}
	}
	return "unknown"
}

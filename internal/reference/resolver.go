// Package reference centralizes the attribute fallback chains every domain
// mapper shares. Each chain lives in exactly one place so the domains can
// never diverge on defaults.
package reference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/costlens/internal/config"
	obsmetrics "github.com/smallbiznis/costlens/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RegionGlobal is stamped on rows of domains that are not region-scoped.
const RegionGlobal = "global"

// Default FOCUS service categories per source domain.
const (
	CategorySubscriptions = "SaaS"
	CategoryCloud         = "Cloud Infrastructure"
	CategoryGenAI         = "AI and Machine Learning"
)

var invoiceNamespace = uuid.MustParse("7e6c2a44-9c1b-4ad4-8f0e-1d2b5c9a6f31")

// Resolver applies the documented fallback chains. Substitutions are data
// quality signals: logged and counted, never surfaced as errors.
type Resolver struct {
	log             *zap.Logger
	metrics         *obsmetrics.Metrics
	defaultCurrency string
}

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

var Module = fx.Module("reference",
	fx.Provide(NewResolver),
)

func NewResolver(p Params) *Resolver {
	return &Resolver{
		log:             p.Log.Named("reference.resolver"),
		metrics:         p.Metrics,
		defaultCurrency: p.Config.DefaultCurrency,
	}
}

// NewStaticResolver returns a resolver with a fixed system currency.
// Intended for tests.
func NewStaticResolver(systemCurrency string) *Resolver {
	return &Resolver{
		log:             zap.NewNop(),
		defaultCurrency: systemCurrency,
	}
}

// Currency resolves entity currency -> tenant default -> system default.
func (r *Resolver) Currency(ctx context.Context, domain, entityCurrency, tenantDefault string) string {
	if c := strings.ToUpper(strings.TrimSpace(entityCurrency)); c != "" {
		return c
	}
	if c := strings.ToUpper(strings.TrimSpace(tenantDefault)); c != "" {
		r.signal(ctx, domain, "currency", c)
		return c
	}
	r.signal(ctx, domain, "currency", r.defaultCurrency)
	return r.defaultCurrency
}

// Region substitutes the global sentinel for domains with no region scope.
func (r *Resolver) Region(ctx context.Context, domain, region string) string {
	if region = strings.TrimSpace(region); region != "" {
		return region
	}
	r.signal(ctx, domain, "region", RegionGlobal)
	return RegionGlobal
}

// ServiceCategory substitutes the domain's default category.
func (r *Resolver) ServiceCategory(ctx context.Context, domain, category string) string {
	if category = strings.TrimSpace(category); category != "" {
		return category
	}
	def := categoryFor(domain)
	r.signal(ctx, domain, "service_category", def)
	return def
}

// ResourceID returns the first non-empty candidate. Falling back past the
// primary candidate is a data-quality signal; an all-empty chain yields
// the "unknown" sentinel.
func (r *Resolver) ResourceID(ctx context.Context, domain string, candidates ...string) string {
	for i, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			if i > 0 {
				r.signal(ctx, domain, "resource_id", c)
			}
			return c
		}
	}
	r.signal(ctx, domain, "resource_id", "unknown")
	return "unknown"
}

// InvoiceID returns a deterministic identifier for rows whose source
// carries no invoice reference: the same tenant and month always produce
// the same value.
func (r *Resolver) InvoiceID(tenantID snowflake.ID, day time.Time) string {
	seed := fmt.Sprintf("%s:%04d-%02d", tenantID.String(), day.Year(), int(day.Month()))
	return uuid.NewSHA1(invoiceNamespace, []byte(seed)).String()
}

func (r *Resolver) signal(ctx context.Context, domain, attr, substituted string) {
	r.log.Warn("fallback substitution",
		zap.String("domain", domain),
		zap.String("attribute", attr),
		zap.String("substituted", substituted),
	)
	r.metrics.RecordFallback(ctx, domain, attr)
}

func categoryFor(domain string) string {
	switch domain {
	case "cloud":
		return CategoryCloud
	case "genai":
		return CategoryGenAI
	default:
		return CategorySubscriptions
	}
}

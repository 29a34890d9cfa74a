package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	amortizedomain "github.com/smallbiznis/costlens/internal/amortize/domain"
	"github.com/smallbiznis/costlens/internal/config"
	"github.com/smallbiznis/costlens/internal/datewindow"
	obsmetrics "github.com/smallbiznis/costlens/internal/observability/metrics"
	plandomain "github.com/smallbiznis/costlens/internal/plan/domain"
	"github.com/smallbiznis/costlens/internal/reference"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// costScale fixes the rounding applied to persisted amounts so reruns are
// byte-identical.
const costScale = 6

var (
	hundred          = decimal.NewFromInt(100)
	divisorQuarterly = decimal.RequireFromString("91.25")
	divisorWeekly    = decimal.NewFromInt(7)
	divisorFallback  = decimal.NewFromInt(30)
)

// Calculator expands plans into daily cost records. Expand is pure and
// stateless per plan, so callers may fan out across plans.
type Calculator struct {
	log      *zap.Logger
	policy   *config.PolicyHolder
	resolver *reference.Resolver
	metrics  *obsmetrics.Metrics
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Policy   *config.PolicyHolder
	Resolver *reference.Resolver
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

func NewCalculator(p Params) amortizedomain.Calculator {
	return &Calculator{
		log:      p.Log.Named("amortize.calculator"),
		policy:   p.Policy,
		resolver: p.Resolver,
		metrics:  p.Metrics,
	}
}

// Expand produces one record per calendar day in the intersection of the
// plan's active range and the processing window. Divisors are recomputed
// per day: a window straddling a leap-year boundary amortizes an annual
// plan against 366 on one side and 365 on the other.
func (c *Calculator) Expand(
	ctx context.Context,
	plan plandomain.SubscriptionPlan,
	tenantCurrency string,
	window datewindow.Window,
) ([]amortizedomain.DailyCostRecord, error) {
	active, ok := window.Clamp(plan.StartDate, plan.EndDate)
	if !ok {
		return nil, nil
	}

	seats, defaulted, err := c.resolveSeats(ctx, plan)
	if err != nil {
		return nil, err
	}

	cost, listCost := cycleCost(plan, seats)
	if cost.IsZero() {
		// Free-tier plans never reach the ledger.
		return nil, nil
	}

	currency := c.resolver.Currency(ctx, "subscriptions", plan.Currency, tenantCurrency)

	records := make([]amortizedomain.DailyCostRecord, 0, active.Days())
	_ = active.EachDay(func(day time.Time) error {
		divisor := dailyDivisor(plan.BillingCycle, day)
		daily := cost.Div(divisor).Round(costScale)
		if daily.IsZero() {
			return nil
		}
		records = append(records, amortizedomain.DailyCostRecord{
			PlanID:         plan.ID,
			CostDate:       day,
			CycleCost:      cost,
			DailyCost:      daily,
			ListDailyCost:  listCost.Div(divisor).Round(costScale),
			MonthlyRunRate: daily.Mul(decimal.NewFromInt(int64(DaysInMonth(day)))).Round(costScale),
			AnnualRunRate:  daily.Mul(decimal.NewFromInt(int64(DaysInYear(day.Year())))).Round(costScale),
			Currency:       currency,
			Seats:          seats,
			SeatsDefaulted: defaulted,
		})
		return nil
	})
	return records, nil
}

func (c *Calculator) resolveSeats(ctx context.Context, plan plandomain.SubscriptionPlan) (int, bool, error) {
	if plan.PricingModel != plandomain.PricingModelPerSeat {
		return 1, false, nil
	}
	if plan.Seats > 0 {
		return plan.Seats, false, nil
	}
	if c.policy.Get().SeatsPolicy == config.SeatsPolicyStrict {
		return 0, false, amortizedomain.ErrInvalidSeats
	}
	c.log.Warn("seats defaulted to 1",
		zap.String("plan_id", plan.ID.String()),
		zap.String("plan_name", plan.PlanName),
		zap.Int("seats", plan.Seats),
	)
	c.metrics.RecordFallback(ctx, "subscriptions", "seats")
	return 1, true, nil
}

// cycleCost computes the discounted and list (pre-discount) price of one
// full billing cycle. Negative discounts count as no discount; a fixed
// discount can never push the cost below zero.
func cycleCost(plan plandomain.SubscriptionPlan, seats int) (discounted, list decimal.Decimal) {
	multiplier := decimal.NewFromInt(1)
	if plan.PricingModel == plandomain.PricingModelPerSeat {
		multiplier = decimal.NewFromInt(int64(seats))
	}
	list = plan.UnitPrice.Mul(multiplier).Round(costScale)
	cost := plan.UnitPrice.Mul(multiplier)

	switch plan.DiscountType {
	case plandomain.DiscountTypePercent:
		pct := plan.DiscountValue
		if pct.IsNegative() {
			pct = decimal.Zero
		}
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
		cost = cost.Mul(decimal.NewFromInt(1).Sub(pct.Div(hundred)))
	case plandomain.DiscountTypeFixed:
		fixed := plan.DiscountValue
		if fixed.IsNegative() {
			fixed = decimal.Zero
		}
		cost = cost.Sub(fixed)
	}

	if cost.IsNegative() {
		return decimal.Zero, list
	}
	return cost.Round(costScale), list
}

// dailyDivisor returns the number of days one cycle's cost is spread over,
// evaluated for the specific day being amortized.
func dailyDivisor(cycle plandomain.BillingCycle, day time.Time) decimal.Decimal {
	switch cycle {
	case plandomain.BillingCycleMonthly:
		return decimal.NewFromInt(int64(DaysInMonth(day)))
	case plandomain.BillingCycleAnnual:
		return decimal.NewFromInt(int64(DaysInYear(day.Year())))
	case plandomain.BillingCycleQuarterly:
		return divisorQuarterly
	case plandomain.BillingCycleWeekly:
		return divisorWeekly
	default:
		// Documented fallback for custom and unrecognized cycles.
		return divisorFallback
	}
}

// DaysInMonth returns the calendar length of the month containing day.
func DaysInMonth(day time.Time) int {
	return time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysInYear returns 366 for Gregorian leap years, else 365.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// IsLeapYear implements the Gregorian rule: divisible by 4, except century
// years unless divisible by 400.
func IsLeapYear(year int) bool {
	switch {
	case year%400 == 0:
		return true
	case year%100 == 0:
		return false
	default:
		return year%4 == 0
	}
}

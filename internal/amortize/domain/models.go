// Package domain contains the amortization calculator's output model.
// Daily cost records are ephemeral: recomputed in full on every run and
// never patched incrementally.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DailyCostRecord is one calendar day of an entity's amortized cost.
// DailyCost is always non-negative; zero-cost days are dropped before the
// record set leaves the calculator.
type DailyCostRecord struct {
	PlanID         snowflake.ID
	CostDate       time.Time
	CycleCost      decimal.Decimal
	DailyCost      decimal.Decimal
	ListDailyCost  decimal.Decimal // pre-discount daily cost
	MonthlyRunRate decimal.Decimal
	AnnualRunRate  decimal.Decimal
	Currency       string
	Seats          int
	SeatsDefaulted bool
}

var ErrInvalidSeats = errors.New("invalid_seats")

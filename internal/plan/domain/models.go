// Package domain contains the raw subscription plan store. Rows are
// written by upstream ingestion and read-only to the engine.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costlens/internal/lineage"
	"gorm.io/datatypes"
)

// BillingCycle is the cadence a plan is priced at.
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleAnnual    BillingCycle = "annual"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleWeekly    BillingCycle = "weekly"
	BillingCycleCustom    BillingCycle = "custom"
)

// PricingModel distinguishes seat-multiplied from flat pricing.
type PricingModel string

const (
	PricingModelPerSeat PricingModel = "PER_SEAT"
	PricingModelFlatFee PricingModel = "FLAT_FEE"
)

// DiscountType describes how DiscountValue applies to the cycle price.
type DiscountType string

const (
	DiscountTypeNone    DiscountType = "none"
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

// PlanStatus is the lifecycle state reported by the source system.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusExpired   PlanStatus = "expired"
	PlanStatusCancelled PlanStatus = "cancelled"
)

// SubscriptionPlan is one priced entity with a billing cycle. UnitPrice is
// the price for one full cycle, never normalized to monthly.
type SubscriptionPlan struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	TenantID      snowflake.ID      `gorm:"not null;index"`
	Provider      string            `gorm:"type:text;not null"`
	PlanName      string            `gorm:"type:text;not null"`
	BillingCycle  BillingCycle      `gorm:"type:text;not null"`
	UnitPrice     decimal.Decimal   `gorm:"type:numeric;not null"`
	PricingModel  PricingModel      `gorm:"type:text;not null"`
	Seats         int               `gorm:"not null;default:0"`
	DiscountType  DiscountType      `gorm:"type:text;not null;default:none"`
	DiscountValue decimal.Decimal   `gorm:"type:numeric;not null;default:0"`
	Currency      string            `gorm:"type:text"`
	StartDate     time.Time         `gorm:"not null"`
	EndDate       *time.Time        // nil = still active
	Status        PlanStatus        `gorm:"type:text;not null"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	lineage.Tuple `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SubscriptionPlan) TableName() string { return "subscription_plans" }

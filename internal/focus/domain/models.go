// Package domain contains the canonical cost ledger schema shared by all
// source domains. One row per cost event per day; required fields are
// never null for any row the engine writes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Source system tags for the canonical ledger.
const (
	SourceSubscriptions = "subscriptions"
	SourceCloud         = "cloud"
	SourceGenAI         = "genai"
)

// CanonicalLedgerRecord is the FOCUS-style unified cost row.
type CanonicalLedgerRecord struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	TenantID snowflake.ID `gorm:"not null;index:ix_canonical_scope,priority:1"`

	// Required cost fields.
	SourceSystem      string          `gorm:"type:text;not null;index:ix_canonical_scope,priority:2"`
	Provider          string          `gorm:"type:text;not null"`
	BilledCost        decimal.Decimal `gorm:"type:numeric;not null"`
	EffectiveCost     decimal.Decimal `gorm:"type:numeric;not null"`
	ListCost          decimal.Decimal `gorm:"type:numeric;not null"`
	BillingCurrency   string          `gorm:"type:text;not null"`
	ServiceCategory   string          `gorm:"type:text;not null"`
	ServiceName       string          `gorm:"type:text;not null"`
	ChargePeriodStart time.Time       `gorm:"not null;index:ix_canonical_scope,priority:3"`
	ChargePeriodEnd   time.Time       `gorm:"not null"`
	ResourceID        string          `gorm:"type:text;not null"`
	InvoiceID         string          `gorm:"type:text;not null"`

	// Contextual fields.
	ChargeDescription      string          `gorm:"type:text"`
	Region                 string          `gorm:"type:text;not null"`
	SKUID                  string          `gorm:"type:text"`
	PricingQuantity        decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	PricingUnit            string          `gorm:"type:text"`
	CommitmentDiscountID   *string         `gorm:"type:text"`
	CommitmentDiscountType *string         `gorm:"type:text"`
	ContractID             *string         `gorm:"type:text"`

	// Hierarchy attribution, never null (unassigned bucket otherwise).
	HierarchyEntityID   string `gorm:"type:text;not null"`
	HierarchyEntityName string `gorm:"type:text;not null"`
	HierarchyLevel      string `gorm:"type:text;not null"`
	HierarchyPath       string `gorm:"type:text;not null"`
	HierarchyPathNames  string `gorm:"type:text;not null"`

	// Multi-currency provenance. ExchangeRate is 1.0 and the originals
	// mirror the billed values when no conversion occurred, so "was this
	// converted" is derivable rather than flagged.
	OriginalCurrency string          `gorm:"type:text;not null"`
	OriginalCost     decimal.Decimal `gorm:"type:numeric;not null"`
	ExchangeRate     decimal.Decimal `gorm:"type:numeric;not null"`

	// Pipeline lineage.
	PipelineID     string    `gorm:"type:text;not null"`
	CredentialID   string    `gorm:"type:text;not null"`
	RunID          string    `gorm:"type:text;not null"`
	RunDate        time.Time `gorm:"not null"`
	SourceRecordID string    `gorm:"type:text;not null"`
	IngestedAt     time.Time `gorm:"not null"`

	// Checksum over the lineage tuple plus the business key; backs the
	// row-identity invariant across reruns.
	Checksum  string    `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CanonicalLedgerRecord) TableName() string { return "canonical_cost_records" }

// Package domain contains raw cloud billing lines. Each provider's
// ingestion pipeline already delivers daily granularity, so the cloud
// domain skips consolidation entirely.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costlens/internal/lineage"
	"gorm.io/datatypes"
)

// BillingLine is one provider-reported daily cost line.
type BillingLine struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	TenantID        snowflake.ID    `gorm:"not null;index"`
	Provider        string          `gorm:"type:text;not null"`
	AccountID       string          `gorm:"type:text"`
	ServiceName     string          `gorm:"type:text"`
	ServiceCategory string          `gorm:"type:text"`
	SKUID           string          `gorm:"type:text"`
	Region          string          `gorm:"type:text"`
	ResourceID      string          `gorm:"type:text"`
	UsageDate       time.Time       `gorm:"not null;index"`
	Quantity        decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Unit            string          `gorm:"type:text"`
	ListCost        decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	BilledCost      decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	EffectiveCost   decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Currency        string          `gorm:"type:text"`
	Tags            datatypes.JSONMap `gorm:"type:jsonb"`
	lineage.Tuple   `gorm:"embedded"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingLine) TableName() string { return "cloud_billing_lines" }

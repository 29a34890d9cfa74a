// Package domain contains the three raw GenAI billing flows and the
// unified tables the consolidator produces from them. Raw rows are written
// by upstream ingestion and read-only to the engine; unified rows are
// recomputed in full on every run.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costlens/internal/lineage"
)

// Flow identifies which billing flow a raw row came from.
type Flow string

const (
	FlowPayAsYouGo       Flow = "payg"
	FlowReservedCapacity Flow = "reserved_capacity"
	FlowInfrastructure   Flow = "infrastructure"
)

// PaygUsage is token-metered usage for the pay-as-you-go flow.
type PaygUsage struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	TenantID      snowflake.ID `gorm:"not null;index"`
	Provider      string       `gorm:"type:text;not null"`
	Model         string       `gorm:"type:text;not null"`
	UsageDate     time.Time    `gorm:"not null;index"`
	InputTokens   int64        `gorm:"not null;default:0"`
	OutputTokens  int64        `gorm:"not null;default:0"`
	Requests      int64        `gorm:"not null;default:0"`
	lineage.Tuple `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PaygUsage) TableName() string { return "genai_payg_usage" }

// PaygCost is the provider-reported cost for the pay-as-you-go flow.
type PaygCost struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	TenantID      snowflake.ID    `gorm:"not null;index"`
	Provider      string          `gorm:"type:text;not null"`
	Model         string          `gorm:"type:text;not null"`
	UsageDate     time.Time       `gorm:"not null;index"`
	Cost          decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Currency      string          `gorm:"type:text"`
	lineage.Tuple `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PaygCost) TableName() string { return "genai_payg_costs" }

// ReservedUsage tracks consumption of pre-purchased capacity units.
type ReservedUsage struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	TenantID      snowflake.ID    `gorm:"not null;index"`
	Provider      string          `gorm:"type:text;not null"`
	Model         string          `gorm:"type:text;not null"`
	UsageDate     time.Time       `gorm:"not null;index"`
	Units         decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	CommitmentID  string          `gorm:"type:text"`
	lineage.Tuple `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ReservedUsage) TableName() string { return "genai_reserved_usage" }

// ReservedCost is the amortized daily cost of a capacity commitment.
type ReservedCost struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	TenantID      snowflake.ID    `gorm:"not null;index"`
	Provider      string          `gorm:"type:text;not null"`
	Model         string          `gorm:"type:text;not null"`
	UsageDate     time.Time       `gorm:"not null;index"`
	Cost          decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Currency      string          `gorm:"type:text"`
	CommitmentID  string          `gorm:"type:text"`
	lineage.Tuple `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ReservedCost) TableName() string { return "genai_reserved_costs" }

// InfraUsage is compute-hour usage for self-hosted inference
// infrastructure. Model carries the resource identifier for this flow.
type InfraUsage struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	TenantID      snowflake.ID    `gorm:"not null;index"`
	Provider      string          `gorm:"type:text;not null"`
	Model         string          `gorm:"type:text;not null"`
	UsageDate     time.Time       `gorm:"not null;index"`
	ComputeHours  decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	lineage.Tuple `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InfraUsage) TableName() string { return "genai_infra_usage" }

// InfraCost is compute-hour billing for the infrastructure flow.
type InfraCost struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	TenantID      snowflake.ID    `gorm:"not null;index"`
	Provider      string          `gorm:"type:text;not null"`
	Model         string          `gorm:"type:text;not null"`
	UsageDate     time.Time       `gorm:"not null;index"`
	Cost          decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Currency      string          `gorm:"type:text"`
	lineage.Tuple `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InfraCost) TableName() string { return "genai_infra_costs" }

// UnifiedUsage is the Stage A output: all flows' usage merged per
// (provider, model, usage date).
type UnifiedUsage struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	TenantID       snowflake.ID    `gorm:"not null;index"`
	Provider       string          `gorm:"type:text;not null"`
	Model          string          `gorm:"type:text;not null"`
	UsageDate      time.Time       `gorm:"not null;index"`
	InputTokens    int64           `gorm:"not null;default:0"`
	OutputTokens   int64           `gorm:"not null;default:0"`
	Requests       int64           `gorm:"not null;default:0"`
	CommittedUnits decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	ComputeHours   decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Flows          string          `gorm:"type:text;not null"`
	lineage.Tuple  `gorm:"embedded"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UnifiedUsage) TableName() string { return "genai_unified_usage" }

// UnifiedCost is the Stage B output: the single per-day, per-key cost row
// downstream mapping reads. Cost contributions from flows sharing a key
// are summed.
type UnifiedCost struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	TenantID      snowflake.ID    `gorm:"not null;index"`
	Provider      string          `gorm:"type:text;not null"`
	Model         string          `gorm:"type:text;not null"`
	UsageDate     time.Time       `gorm:"not null;index"`
	TotalCost     decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Currency      string          `gorm:"type:text;not null"`
	CommitmentID  *string         `gorm:"type:text"`
	Flows         string          `gorm:"type:text;not null"`
	lineage.Tuple `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UnifiedCost) TableName() string { return "genai_unified_costs" }

// Package domain contains the consolidation stage contract for the GenAI
// cost domain.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Stage names one of the two ordered consolidation passes.
type Stage string

const (
	StageUsage Stage = "usage"
	StageCost  Stage = "cost"
)

// StageRun records that a stage committed for a scope. The cost stage
// refuses to run until the usage stage's marker exists for the identical
// scope.
type StageRun struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	TenantID    snowflake.ID `gorm:"not null;uniqueIndex:ux_consolidation_stages_scope,priority:1"`
	Scope       string       `gorm:"type:text;not null;uniqueIndex:ux_consolidation_stages_scope,priority:2"`
	Stage       Stage        `gorm:"type:text;not null;uniqueIndex:ux_consolidation_stages_scope,priority:3"`
	CompletedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (StageRun) TableName() string { return "consolidation_stages" }

var ErrStageOrderViolation = errors.New("stage_order_violation")

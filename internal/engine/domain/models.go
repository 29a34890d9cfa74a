// Package domain contains the run registry and the engine's public error
// taxonomy. Parameter errors are rejected before a run row exists;
// anything after that is recorded on the run.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Source domains the engine can normalize.
const (
	DomainSubscriptions = "subscriptions"
	DomainCloud         = "cloud"
	DomainGenAI         = "genai"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// PipelineRun is one normalization attempt over a tenant, domain, and
// window. The ID is a ULID so runs sort by start time.
type PipelineRun struct {
	ID          string       `gorm:"primaryKey;type:text"`
	TenantID    snowflake.ID `gorm:"not null;index"`
	Domain      string       `gorm:"type:text;not null"`
	WindowStart time.Time    `gorm:"not null"`
	WindowEnd   time.Time    `gorm:"not null"`
	Status      RunStatus    `gorm:"type:text;not null"`
	RowsWritten int64        `gorm:"not null;default:0"`
	Error       string       `gorm:"type:text"`
	StartedAt   time.Time    `gorm:"not null"`
	FinishedAt  *time.Time
}

// TableName sets the database table name.
func (PipelineRun) TableName() string { return "pipeline_runs" }

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrUnknownDomain = errors.New("unknown_domain")
	ErrRunNotFound   = errors.New("run_not_found")
)

// ValidDomain reports whether the engine knows how to normalize domain.
func ValidDomain(domain string) bool {
	switch domain {
	case DomainSubscriptions, DomainCloud, DomainGenAI:
		return true
	}
	return false
}

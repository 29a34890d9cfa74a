package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costlens/internal/datewindow"
)

// Service runs normalization pipelines and answers run lookups.
type Service interface {
	// Run executes one pipeline synchronously and returns the finished
	// run. Parameter errors return before any run row is written.
	Run(ctx context.Context, tenantID snowflake.ID, domain string, window datewindow.Window) (*PipelineRun, error)
	GetRun(ctx context.Context, runID string) (*PipelineRun, error)
	// ListRuns returns a tenant's most recent runs, newest first.
	ListRuns(ctx context.Context, tenantID snowflake.ID, limit int) ([]*PipelineRun, error)
}

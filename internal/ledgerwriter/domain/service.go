// Package domain defines the idempotent canonical ledger write contract.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costlens/internal/datewindow"
	focusdomain "github.com/smallbiznis/costlens/internal/focus/domain"
)

// Scope is the slice of the ledger one run owns: a tenant, a source
// system, and a charge-period window. Replace touches nothing outside it.
type Scope struct {
	TenantID     snowflake.ID
	SourceSystem string
	Window       datewindow.Window
}

// Writer replaces the scope's ledger rows atomically. A rerun over
// unchanged inputs leaves the scope byte-identical except ingested_at.
type Writer interface {
	Replace(ctx context.Context, scope Scope, records []focusdomain.CanonicalLedgerRecord) (int64, error)
}

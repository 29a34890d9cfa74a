// Package lineage carries the source provenance stamped on every raw and
// canonical record.
package lineage

import "time"

// Tuple identifies where a record came from. Together with the business
// key (entity, cost date) it uniquely identifies a canonical ledger row.
type Tuple struct {
	PipelineID   string    `gorm:"type:text;not null"`
	CredentialID string    `gorm:"type:text;not null"`
	RunDate      time.Time `gorm:"not null"`
	IngestedAt   time.Time `gorm:"not null"`
}

package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	focusdomain "github.com/smallbiznis/costlens/internal/focus/domain"
	ledgerdomain "github.com/smallbiznis/costlens/internal/ledgerwriter/domain"
	obsmetrics "github.com/smallbiznis/costlens/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type writer struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	metrics *obsmetrics.Metrics
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewWriter(p Params) ledgerdomain.Writer {
	return &writer{
		db:      p.DB,
		log:     p.Log.Named("ledgerwriter.service"),
		genID:   p.GenID,
		metrics: p.Metrics,
	}
}

// Replace deletes every row in the scope and inserts the new set in one
// transaction. Row ids are stamped at insert; the checksum, not the id,
// carries row identity across reruns.
func (w *writer) Replace(ctx context.Context, scope ledgerdomain.Scope, records []focusdomain.CanonicalLedgerRecord) (int64, error) {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("tenant_id = ? AND source_system = ? AND charge_period_start >= ? AND charge_period_start < ?",
				scope.TenantID, scope.SourceSystem, scope.Window.Start, scope.Window.NextDay()).
			Delete(&focusdomain.CanonicalLedgerRecord{}).Error; err != nil {
			return err
		}
		for i := range records {
			records[i].ID = w.genID.Generate()
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}

	count := int64(len(records))
	w.metrics.RecordLedgerRows(ctx, scope.SourceSystem, count)
	w.log.Info("ledger scope replaced",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("source_system", scope.SourceSystem),
		zap.String("scope", scope.Window.Key()),
		zap.Int64("rows", count),
	)
	return count, nil
}

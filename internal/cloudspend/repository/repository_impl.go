package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	cloudspenddomain "github.com/smallbiznis/costlens/internal/cloudspend/domain"
	"github.com/smallbiznis/costlens/internal/datewindow"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) cloudspenddomain.Repository {
	return &repo{db: db}
}

func (r *repo) ListByWindow(ctx context.Context, tenantID snowflake.ID, window datewindow.Window) ([]cloudspenddomain.BillingLine, error) {
	var lines []cloudspenddomain.BillingLine
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("usage_date >= ? AND usage_date < ?", window.Start, window.NextDay()).
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costlens/internal/datewindow"
	plandomain "github.com/smallbiznis/costlens/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) plandomain.Repository {
	return &repo{db: db}
}

func (r *repo) ListOverlapping(ctx context.Context, tenantID snowflake.ID, window datewindow.Window) ([]plandomain.SubscriptionPlan, error) {
	var plans []plandomain.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("start_date < ?", window.NextDay()).
		Where("end_date IS NULL OR end_date >= ?", window.Start).
		Order("id ASC").
		Find(&plans).Error
	return plans, err
}

package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/smallbiznis/costlens/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) tenantdomain.Repository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, tenantID snowflake.ID) (*tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := r.db.WithContext(ctx).
		Where("id = ?", tenantID).
		First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenantdomain.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *repo) ListNodes(ctx context.Context, tenantID snowflake.ID) ([]tenantdomain.HierarchyNode, error) {
	var nodes []tenantdomain.HierarchyNode
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&nodes).Error
	return nodes, err
}

func (r *repo) ListMemberships(ctx context.Context, tenantID snowflake.ID) ([]tenantdomain.HierarchyMembership, error) {
	var memberships []tenantdomain.HierarchyMembership
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&memberships).Error
	return memberships, err
}

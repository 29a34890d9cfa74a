// Package domain contains tenant metadata consumed by the normalization
// engine. Rows are maintained by the console's org-management surface and
// read-only here.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant holds the per-tenant defaults the engine falls back to.
type Tenant struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	Slug            string       `gorm:"type:text;not null;uniqueIndex"`
	Name            string       `gorm:"type:text;not null"`
	DefaultCurrency string       `gorm:"type:text"`
	Country         string       `gorm:"type:text"`
	Timezone        string       `gorm:"type:text"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// HierarchyLevel classifies a node in the org hierarchy.
type HierarchyLevel string

const (
	HierarchyLevelDepartment HierarchyLevel = "DEPT"
	HierarchyLevelProject    HierarchyLevel = "PROJ"
	HierarchyLevelTeam       HierarchyLevel = "TEAM"
)

// HierarchyNode is one entry of a tenant's org tree (max depth 5).
type HierarchyNode struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	TenantID  snowflake.ID   `gorm:"not null;index"`
	ParentID  *snowflake.ID  `gorm:"index"`
	Code      string         `gorm:"type:text;not null"`
	Name      string         `gorm:"type:text;not null"`
	Level     HierarchyLevel `gorm:"type:text;not null"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (HierarchyNode) TableName() string { return "hierarchy_nodes" }

// HierarchyMembership declares which hierarchy node a cost-bearing entity
// rolls up to.
type HierarchyMembership struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	TenantID   snowflake.ID `gorm:"not null;uniqueIndex:ux_hierarchy_memberships_entity,priority:1"`
	EntityType string       `gorm:"type:text;not null;uniqueIndex:ux_hierarchy_memberships_entity,priority:2"`
	EntityID   string       `gorm:"type:text;not null;uniqueIndex:ux_hierarchy_memberships_entity,priority:3"`
	NodeID     snowflake.ID `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (HierarchyMembership) TableName() string { return "hierarchy_memberships" }

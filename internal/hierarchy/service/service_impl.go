package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	hierarchydomain "github.com/smallbiznis/costlens/internal/hierarchy/domain"
	tenantdomain "github.com/smallbiznis/costlens/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// maxDepth bounds path resolution; the console never creates hierarchies
// deeper than five levels.
const maxDepth = 5

type Service struct {
	log        *zap.Logger
	tenantRepo tenantdomain.Repository
}

type Params struct {
	fx.In

	Log        *zap.Logger
	TenantRepo tenantdomain.Repository
}

func NewService(p Params) hierarchydomain.Service {
	return &Service{
		log:        p.Log.Named("hierarchy.service"),
		tenantRepo: p.TenantRepo,
	}
}

type tree struct {
	log         *zap.Logger
	nodes       map[snowflake.ID]tenantdomain.HierarchyNode
	memberships map[string]snowflake.ID // entityType:entityID -> node
}

// Load reads the tenant's nodes and memberships once per run.
func (s *Service) Load(ctx context.Context, tenantID snowflake.ID) (hierarchydomain.Tree, error) {
	nodes, err := s.tenantRepo.ListNodes(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("attribute: %w", err)
	}
	memberships, err := s.tenantRepo.ListMemberships(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("attribute: %w", err)
	}

	t := &tree{
		log:         s.log,
		nodes:       make(map[snowflake.ID]tenantdomain.HierarchyNode, len(nodes)),
		memberships: make(map[string]snowflake.ID, len(memberships)),
	}
	for _, node := range nodes {
		t.nodes[node.ID] = node
	}
	for _, m := range memberships {
		t.memberships[membershipKey(m.EntityType, m.EntityID)] = m.NodeID
	}
	return t, nil
}

// Attribute resolves the entity's full rollup path, or the unassigned
// bucket when the entity declares no membership.
func (t *tree) Attribute(entityType, entityID string) hierarchydomain.Attribution {
	nodeID, ok := t.memberships[membershipKey(entityType, entityID)]
	if !ok {
		return hierarchydomain.Unassigned()
	}
	node, ok := t.nodes[nodeID]
	if !ok {
		t.log.Warn("membership points at missing hierarchy node",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.String("node_id", nodeID.String()),
		)
		return hierarchydomain.Unassigned()
	}

	ids := make([]string, 0, maxDepth)
	names := make([]string, 0, maxDepth)
	current := node
	for depth := 0; depth < maxDepth; depth++ {
		ids = append(ids, current.Code)
		names = append(names, current.Name)
		if current.ParentID == nil {
			break
		}
		parent, ok := t.nodes[*current.ParentID]
		if !ok {
			break
		}
		current = parent
	}
	reverse(ids)
	reverse(names)

	return hierarchydomain.Attribution{
		EntityID:   node.Code,
		EntityName: node.Name,
		LevelCode:  string(node.Level),
		Path:       strings.Join(ids, "/"),
		PathNames:  strings.Join(names, "/"),
	}
}

func membershipKey(entityType, entityID string) string {
	return entityType + ":" + entityID
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

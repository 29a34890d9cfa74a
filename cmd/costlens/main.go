package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costlens/internal/amortize"
	"github.com/smallbiznis/costlens/internal/clock"
	"github.com/smallbiznis/costlens/internal/cloudspend"
	"github.com/smallbiznis/costlens/internal/config"
	"github.com/smallbiznis/costlens/internal/consolidate"
	"github.com/smallbiznis/costlens/internal/engine"
	"github.com/smallbiznis/costlens/internal/focus"
	"github.com/smallbiznis/costlens/internal/hierarchy"
	"github.com/smallbiznis/costlens/internal/ledgerwriter"
	"github.com/smallbiznis/costlens/internal/migration"
	"github.com/smallbiznis/costlens/internal/observability"
	"github.com/smallbiznis/costlens/internal/plan"
	"github.com/smallbiznis/costlens/internal/reference"
	"github.com/smallbiznis/costlens/internal/server"
	"github.com/smallbiznis/costlens/internal/tenant"
	"github.com/smallbiznis/costlens/pkg/db"
	"github.com/smallbiznis/costlens/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		observability.Module,
		migration.Module,

		// Engine domains
		reference.Module,
		tenant.Module,
		plan.Module,
		cloudspend.Module,
		amortize.Module,
		consolidate.Module,
		hierarchy.Module,
		focus.Module,
		ledgerwriter.Module,
		engine.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

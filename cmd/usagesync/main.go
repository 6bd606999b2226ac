package main

import (
	"github.com/brightops/usagesync/internal/client"
	"github.com/brightops/usagesync/internal/clock"
	"github.com/brightops/usagesync/internal/config"
	"github.com/brightops/usagesync/internal/contract"
	"github.com/brightops/usagesync/internal/migration"
	"github.com/brightops/usagesync/internal/observability"
	"github.com/brightops/usagesync/internal/psa"
	"github.com/brightops/usagesync/internal/reconciler"
	"github.com/brightops/usagesync/internal/revenue"
	"github.com/brightops/usagesync/internal/server"
	"github.com/brightops/usagesync/internal/timeusage"
	"github.com/brightops/usagesync/internal/usage"
	"github.com/brightops/usagesync/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		psa.Module,
		client.Module,
		contract.Module,
		timeusage.Module,
		revenue.Module,
		usage.Module,
		reconciler.Module,

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

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/internal/clock"
	"github.com/smallbiznis/pitchfund/internal/closure"
	"github.com/smallbiznis/pitchfund/internal/config"
	"github.com/smallbiznis/pitchfund/internal/migration"
	"github.com/smallbiznis/pitchfund/internal/observability"
	"github.com/smallbiznis/pitchfund/internal/seed"
	"github.com/smallbiznis/pitchfund/internal/server"
	"github.com/smallbiznis/pitchfund/pkg/db"
	"go.uber.org/fx"
)

// Single-process deployment: HTTP API plus the closure worker.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		server.Module,
		closure.Module,
		seed.Module,
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

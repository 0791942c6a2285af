package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/internal/clock"
	"github.com/smallbiznis/pitchfund/internal/closure"
	"github.com/smallbiznis/pitchfund/internal/config"
	"github.com/smallbiznis/pitchfund/internal/observability"
	"github.com/smallbiznis/pitchfund/internal/server"
	"github.com/smallbiznis/pitchfund/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services without the HTTP server
		server.Domain,
		closure.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(3)
	if err != nil {
		panic(err)
	}
	return node
}

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/inkwavehq/inkwave/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(RegisterSnowflake),
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

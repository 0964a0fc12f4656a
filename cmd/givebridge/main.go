package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/givebridge/internal/config"
	"github.com/smallbiznis/givebridge/internal/migration"
	"github.com/smallbiznis/givebridge/internal/observability"
	"github.com/smallbiznis/givebridge/internal/payment"
	"github.com/smallbiznis/givebridge/internal/ratelimit"
	"github.com/smallbiznis/givebridge/internal/server"
	"github.com/smallbiznis/givebridge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		payment.Module,
		ratelimit.Module,
		server.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
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

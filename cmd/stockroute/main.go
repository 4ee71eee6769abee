package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockroute/internal/allocation"
	"github.com/smallbiznis/stockroute/internal/business"
	"github.com/smallbiznis/stockroute/internal/catalog"
	"github.com/smallbiznis/stockroute/internal/clock"
	"github.com/smallbiznis/stockroute/internal/config"
	"github.com/smallbiznis/stockroute/internal/fulfillment"
	"github.com/smallbiznis/stockroute/internal/history"
	"github.com/smallbiznis/stockroute/internal/logger"
	"github.com/smallbiznis/stockroute/internal/migration"
	"github.com/smallbiznis/stockroute/internal/observability"
	"github.com/smallbiznis/stockroute/internal/order"
	"github.com/smallbiznis/stockroute/internal/seed"
	"github.com/smallbiznis/stockroute/internal/server"
	"github.com/smallbiznis/stockroute/internal/stock"
	"github.com/smallbiznis/stockroute/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		seed.Module,
		clock.Module,

		business.Module,
		catalog.Module,
		order.Module,
		history.Module,
		stock.Module,
		allocation.Module,
		fulfillment.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

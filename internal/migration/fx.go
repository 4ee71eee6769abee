package migration

import (
	"strings"

	"github.com/smallbiznis/stockroute/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		log = log.Named("migration")

		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
			log.Info("migrations applied", zap.String("driver", "postgres"))
			return nil
		}

		if err := ApplySchema(conn); err != nil {
			return err
		}
		log.Info("schema applied", zap.String("driver", cfg.DBType))
		return nil
	}),
)

package seed

import (
	"context"
	"errors"
	"fmt"

	businessdomain "github.com/smallbiznis/stockroute/internal/business/domain"
	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
	"github.com/smallbiznis/stockroute/internal/config"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	demoSupplier      = "Acme"
	demoClient        = "Bob"
	demoType          = "cable"
	demoUnits         = 10
	demoFunctional    = 7
	demoCriticalLevel = 5
)

// Module seeds the demo warehouse when SEED_DEMO is set.
var Module = fx.Module("seed",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.SeedDemo {
			return nil
		}
		if cfg.IsProduction() {
			log.Warn("demo seed skipped in production")
			return nil
		}
		created, err := EnsureDemoStock(conn)
		if err != nil {
			return err
		}
		log.Named("seed").Info("demo stock ensured", zap.Bool("created", created))
		return nil
	}),
)

// EnsureDemoStock creates a supplier holding ten cables, seven of them
// functional, with a critical level of five, plus a client business. It
// does nothing once the supplier exists.
func EnsureDemoStock(db *gorm.DB) (bool, error) {
	if db == nil {
		return false, errors.New("seed database handle is required")
	}

	ctx := context.Background()
	created := false
	err := pkgdb.WithTransaction(ctx, db, func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&businessdomain.Business{}).Where("name = ?", demoSupplier).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		businesses := []businessdomain.Business{{Name: demoSupplier}, {Name: demoClient}}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&businesses).Error; err != nil {
			return err
		}

		products := make([]catalogdomain.Product, 0, demoUnits)
		for i := 1; i <= demoUnits; i++ {
			products = append(products, catalogdomain.Product{
				SerialNumber: fmt.Sprintf("DEMO-CBL-%02d", i),
				TypeName:     demoType,
				OwnerID:      demoSupplier,
				Producent:    "Belden",
				Model:        "Cat6",
				Condition:    i <= demoFunctional,
			})
		}
		if err := tx.Create(&products).Error; err != nil {
			return err
		}

		amount := int64(demoCriticalLevel)
		level := catalogdomain.CriticalLevel{Business: demoSupplier, TypeName: demoType, CriticalAmount: &amount}
		if err := tx.Create(&level).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

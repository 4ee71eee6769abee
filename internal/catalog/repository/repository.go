package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockroute/internal/catalog/domain"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return pkgdb.Translate(db.WithContext(ctx).Create(product).Error)
}

func (r *repo) EnsureCriticalLevel(ctx context.Context, db *gorm.DB, business, typeName string) (bool, error) {
	var existing int64
	err := db.WithContext(ctx).
		Model(&domain.CriticalLevel{}).
		Where("business = ? AND type_name = ?", business, typeName).
		Count(&existing).Error
	if err != nil {
		return false, pkgdb.Translate(err)
	}
	if existing > 0 {
		return false, nil
	}

	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.CriticalLevel{Business: business, TypeName: typeName})
	if res.Error != nil {
		return false, pkgdb.Translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) DeleteUnreserved(ctx context.Context, db *gorm.DB, serial string) (int64, error) {
	res := db.WithContext(ctx).
		Where("serial_number = ? AND appear_in_order IS NULL", serial).
		Delete(&domain.Product{})
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) FindBySerial(ctx context.Context, db *gorm.DB, serial string) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Where("serial_number = ?", serial).Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgdb.Translate(err)
	}
	return &product, nil
}

func (r *repo) FindBySerials(ctx context.Context, db *gorm.DB, serials []string) ([]domain.Product, error) {
	if len(serials) == 0 {
		return nil, nil
	}
	var products []domain.Product
	err := db.WithContext(ctx).
		Where("serial_number IN ?", serials).
		Order("serial_number asc").
		Find(&products).Error
	return products, pkgdb.Translate(err)
}

func (r *repo) ListTypes(ctx context.Context, db *gorm.DB, owner string) ([]string, error) {
	var types []string
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Distinct().
		Where("owner_id = ?", owner).
		Order("type_name asc").
		Pluck("type_name", &types).Error
	return types, pkgdb.Translate(err)
}

func (r *repo) ListProducents(ctx context.Context, db *gorm.DB) ([]string, error) {
	return r.distinctColumn(ctx, db, "producent")
}

func (r *repo) ListModels(ctx context.Context, db *gorm.DB) ([]string, error) {
	return r.distinctColumn(ctx, db, "model")
}

func (r *repo) distinctColumn(ctx context.Context, db *gorm.DB, column string) ([]string, error) {
	var values []string
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Distinct().
		Where(column + " <> ''").
		Order(column + " asc").
		Pluck(column, &values).Error
	return values, pkgdb.Translate(err)
}

func (r *repo) ListByOwnerAndTypes(ctx context.Context, db *gorm.DB, owner string, types []string) ([]domain.Product, error) {
	if len(types) == 0 {
		return nil, nil
	}
	var products []domain.Product
	err := db.WithContext(ctx).
		Where("owner_id = ? AND type_name IN ?", owner, types).
		Order("type_name asc, serial_number asc").
		Find(&products).Error
	return products, pkgdb.Translate(err)
}

func (r *repo) CountByOwner(ctx context.Context, db *gorm.DB, owner string) ([]domain.TypeCount, error) {
	var counts []domain.TypeCount
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Select(`type_name,
			COUNT(*) AS total,
			SUM(CASE WHEN product_condition THEN 1 ELSE 0 END) AS functional,
			SUM(CASE WHEN appear_in_order IS NOT NULL THEN 1 ELSE 0 END) AS reserved`).
		Where("owner_id = ?", owner).
		Group("type_name").
		Order("type_name asc").
		Scan(&counts).Error
	return counts, pkgdb.Translate(err)
}

func (r *repo) UpdateCriticalLevel(ctx context.Context, db *gorm.DB, business, typeName string, amount *int64) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.CriticalLevel{}).
		Where("business = ? AND type_name = ?", business, typeName).
		Update("critical_amount", amount)
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) ListCriticalLevels(ctx context.Context, db *gorm.DB, business string, types []string) ([]domain.CriticalLevel, error) {
	var levels []domain.CriticalLevel
	stmt := db.WithContext(ctx).Where("business = ?", business)
	if len(types) > 0 {
		stmt = stmt.Where("type_name IN ?", types)
	}
	err := stmt.Order("type_name asc").Find(&levels).Error
	return levels, pkgdb.Translate(err)
}

func (r *repo) ListAllocatable(ctx context.Context, db *gorm.DB, owner, typeName string, orderID snowflake.ID) ([]domain.Product, error) {
	var products []domain.Product
	err := db.WithContext(ctx).
		Where("owner_id = ? AND type_name = ? AND product_condition = ?", owner, typeName, true).
		Where("(appear_in_order IS NULL OR appear_in_order = ?)", orderID).
		Order("serial_number asc").
		Find(&products).Error
	return products, pkgdb.Translate(err)
}

func (r *repo) ListBound(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Product, error) {
	var products []domain.Product
	err := db.WithContext(ctx).
		Where("appear_in_order = ?", orderID).
		Order("type_name asc, serial_number asc").
		Find(&products).Error
	return products, pkgdb.Translate(err)
}

func (r *repo) CountBound(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (map[string]int64, error) {
	var rows []struct {
		TypeName string
		Bound    int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Select("type_name, COUNT(*) AS bound").
		Where("appear_in_order = ?", orderID).
		Group("type_name").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgdb.Translate(err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.TypeName] = row.Bound
	}
	return out, nil
}

func (r *repo) Reserve(ctx context.Context, db *gorm.DB, filter domain.ReserveFilter) (int64, error) {
	if len(filter.Serials) == 0 || len(filter.Types) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("serial_number IN ?", filter.Serials).
		Where("owner_id = ? AND type_name IN ? AND product_condition = ?", filter.Owner, filter.Types, true).
		Where("(appear_in_order IS NULL OR appear_in_order = ?)", filter.OrderID).
		Update("appear_in_order", filter.OrderID)
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) Release(ctx context.Context, db *gorm.DB, serials []string) (int64, error) {
	if len(serials) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("serial_number IN ? AND appear_in_order IS NOT NULL", serials).
		Update("appear_in_order", nil)
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) ReleaseByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("appear_in_order = ?", orderID).
		Update("appear_in_order", nil)
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) ReleaseByOrderAndTypes(ctx context.Context, db *gorm.DB, orderID snowflake.ID, types []string) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("appear_in_order = ? AND type_name IN ?", orderID, types).
		Update("appear_in_order", nil)
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) SetCondition(ctx context.Context, db *gorm.DB, serials []string, functional bool) (int64, error) {
	if len(serials) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("serial_number IN ?", serials).
		Update("product_condition", functional)
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) TransferOwnership(ctx context.Context, db *gorm.DB, serials []string, owner string) (int64, error) {
	if len(serials) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("serial_number IN ?", serials).
		Updates(map[string]any{
			"owner_id":        owner,
			"appear_in_order": nil,
		})
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

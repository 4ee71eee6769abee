package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockroute/internal/history/domain"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Append(ctx context.Context, db *gorm.DB, movements []domain.ProductMovement) (int64, error) {
	if len(movements) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Create(&movements)
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.ProductMovement, error) {
	var movements []domain.ProductMovement
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("type_name asc, serial_number asc").
		Find(&movements).Error
	return movements, pkgdb.Translate(err)
}

func (r *repo) SerialsRecorded(ctx context.Context, db *gorm.DB, orderID snowflake.ID, serials []string) ([]string, error) {
	if len(serials) == 0 {
		return nil, nil
	}
	var recorded []string
	err := db.WithContext(ctx).
		Model(&domain.ProductMovement{}).
		Where("order_id = ? AND serial_number IN ?", orderID, serials).
		Order("serial_number asc").
		Pluck("serial_number", &recorded).Error
	return recorded, pkgdb.Translate(err)
}

func (r *repo) SoldByType(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.TypeSold, error) {
	var sold []domain.TypeSold
	err := db.WithContext(ctx).
		Model(&domain.ProductMovement{}).
		Select("type_name, COUNT(*) AS sold").
		Where("order_id = ?", orderID).
		Group("type_name").
		Order("type_name asc").
		Scan(&sold).Error
	return sold, pkgdb.Translate(err)
}

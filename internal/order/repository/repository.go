package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockroute/internal/order/domain"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return pkgdb.Translate(db.WithContext(ctx).Create(order).Error)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	stmt := db.WithContext(ctx)
	// sqlite serializes writers on the database file and has no row locks.
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(stmt, id)
}

func (r *repo) find(stmt *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := stmt.Where("order_id = ?", id).Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgdb.Translate(err)
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Order, error) {
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.Business != "" {
		stmt = stmt.Where("(client_id = ? OR supplier_id = ?)", filter.Business, filter.Business)
	}

	dateColumn := "order_date"
	if filter.History {
		dateColumn = "completion_date"
		stmt = stmt.Where("completion_date IS NOT NULL")
	} else {
		stmt = stmt.Where("completion_date IS NULL")
	}
	if filter.From != nil {
		stmt = stmt.Where(dateColumn+" >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where(dateColumn+" <= ?", *filter.To)
	}

	var orders []domain.Order
	err := stmt.Order(dateColumn + " desc").Order("order_id desc").Find(&orders).Error
	return orders, pkgdb.Translate(err)
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("order_id = ? AND completion_date IS NULL", id).
		Update("completion_date", at)
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("order_id = ?", id).Delete(&domain.Order{})
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) InsertLineItems(ctx context.Context, db *gorm.DB, items []domain.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return pkgdb.Translate(db.WithContext(ctx).Create(&items).Error)
}

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, id snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("type_name asc").
		Find(&items).Error
	return items, pkgdb.Translate(err)
}

func (r *repo) UpdateLineItemQuantity(ctx context.Context, db *gorm.DB, id snowflake.ID, typeName string, quantity int64) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.LineItem{}).
		Where("order_id = ? AND type_name = ?", id, typeName).
		Update("quantity", quantity)
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) DeleteLineItems(ctx context.Context, db *gorm.DB, id snowflake.ID, types []string) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Where("order_id = ? AND type_name IN ?", id, types).
		Delete(&domain.LineItem{})
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) DeleteAllLineItems(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("order_id = ?", id).Delete(&domain.LineItem{})
	return res.RowsAffected, pkgdb.Translate(res.Error)
}

func (r *repo) OrderedAmount(ctx context.Context, db *gorm.DB, supplier string, types []string) (map[string]int64, error) {
	var rows []struct {
		TypeName string
		Ordered  int64
	}
	stmt := db.WithContext(ctx).
		Table("specific_orders AS so").
		Select("so.type_name AS type_name, SUM(so.quantity) AS ordered").
		Joins("JOIN orders AS o ON o.order_id = so.order_id").
		Where("o.supplier_id = ?", supplier)
	if len(types) > 0 {
		stmt = stmt.Where("so.type_name IN ?", types)
	}
	if err := stmt.Group("so.type_name").Scan(&rows).Error; err != nil {
		return nil, pkgdb.Translate(err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.TypeName] = row.Ordered
	}
	return out, nil
}

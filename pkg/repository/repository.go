package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository is a small gorm-backed store for tables keyed by a single
// natural key column.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, key string, values map[string]any) (int64, error)
	Delete(ctx context.Context, key string) (int64, error)
	Count(ctx context.Context, query *T) (int64, error)
}

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type optionFunc func(db *gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

func OrderBy(clause string) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB { return db.Order(clause) })
}

func Limit(n int) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB { return db.Limit(n) })
}

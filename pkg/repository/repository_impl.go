package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/stockroute/pkg/db"
	"gorm.io/gorm"
)

type store[T any] struct {
	db     *gorm.DB
	keyCol string
}

func ProvideStore[T any](conn *gorm.DB, keyColumn string) Repository[T] {
	return &store[T]{db: conn, keyCol: keyColumn}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx, keyCol: r.keyCol}
}

func (r *store[T]) Find(ctx context.Context, query *T, opts ...QueryOption) ([]*T, error) {
	var result []*T
	err := r.buildQuery(ctx, query, opts...).Find(&result).Error
	return result, db.Translate(err)
}

func (r *store[T]) FindOne(ctx context.Context, query *T, opts ...QueryOption) (*T, error) {
	var result T
	err := r.buildQuery(ctx, query, opts...).Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, db.Translate(err)
	}
	return &result, nil
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return db.Translate(r.db.WithContext(ctx).Create(resource).Error)
}

func (r *store[T]) Update(ctx context.Context, key string, values map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(new(T)).Where(r.keyCol+" = ?", key).Updates(values)
	return res.RowsAffected, db.Translate(res.Error)
}

func (r *store[T]) Delete(ctx context.Context, key string) (int64, error) {
	res := r.db.WithContext(ctx).Where(r.keyCol+" = ?", key).Delete(new(T))
	return res.RowsAffected, db.Translate(res.Error)
}

func (r *store[T]) Count(ctx context.Context, query *T) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where(query).Count(&count).Error
	return count, db.Translate(err)
}

func (r *store[T]) buildQuery(ctx context.Context, filter *T, opts ...QueryOption) *gorm.DB {
	stmt := r.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		stmt = stmt.Where(filter)
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}

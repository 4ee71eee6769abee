package db

import (
	"context"

	"gorm.io/gorm"
)

// WithTransaction runs fn in a transaction bound to ctx. Failures to begin or
// commit come back raw from gorm, so the result is passed through Translate;
// errors returned by fn keep their identity.
func WithTransaction(ctx context.Context, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	return Translate(conn.WithContext(ctx).Transaction(fn))
}

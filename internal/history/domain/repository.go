package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Append(ctx context.Context, db *gorm.DB, movements []ProductMovement) (int64, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]ProductMovement, error)
	// SerialsRecorded returns the subset of serials already recorded for the order.
	SerialsRecorded(ctx context.Context, db *gorm.DB, orderID snowflake.ID, serials []string) ([]string, error)
	SoldByType(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]TypeSold, error)
}

package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	// FindForUpdate reads the order and, where the dialect supports it, locks
	// the row for the rest of the transaction.
	FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Order, error)
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)

	InsertLineItems(ctx context.Context, db *gorm.DB, items []LineItem) error
	ListLineItems(ctx context.Context, db *gorm.DB, id snowflake.ID) ([]LineItem, error)
	UpdateLineItemQuantity(ctx context.Context, db *gorm.DB, id snowflake.ID, typeName string, quantity int64) (int64, error)
	DeleteLineItems(ctx context.Context, db *gorm.DB, id snowflake.ID, types []string) (int64, error)
	DeleteAllLineItems(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)

	// OrderedAmount sums requested quantities per type over every order
	// supplied by the business.
	OrderedAmount(ctx context.Context, db *gorm.DB, supplier string, types []string) (map[string]int64, error)
}

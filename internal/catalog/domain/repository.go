package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertProduct(ctx context.Context, db *gorm.DB, product *Product) error
	// EnsureCriticalLevel inserts a null-threshold row for the pair when none
	// exists and reports whether it did.
	EnsureCriticalLevel(ctx context.Context, db *gorm.DB, business, typeName string) (bool, error)
	DeleteUnreserved(ctx context.Context, db *gorm.DB, serial string) (int64, error)

	FindBySerial(ctx context.Context, db *gorm.DB, serial string) (*Product, error)
	FindBySerials(ctx context.Context, db *gorm.DB, serials []string) ([]Product, error)
	ListTypes(ctx context.Context, db *gorm.DB, owner string) ([]string, error)
	ListProducents(ctx context.Context, db *gorm.DB) ([]string, error)
	ListModels(ctx context.Context, db *gorm.DB) ([]string, error)
	ListByOwnerAndTypes(ctx context.Context, db *gorm.DB, owner string, types []string) ([]Product, error)
	CountByOwner(ctx context.Context, db *gorm.DB, owner string) ([]TypeCount, error)

	UpdateCriticalLevel(ctx context.Context, db *gorm.DB, business, typeName string, amount *int64) (int64, error)
	ListCriticalLevels(ctx context.Context, db *gorm.DB, business string, types []string) ([]CriticalLevel, error)

	// ListAllocatable returns functional units of the type held by owner that
	// are free or bound to orderID, ordered by serial number.
	ListAllocatable(ctx context.Context, db *gorm.DB, owner, typeName string, orderID snowflake.ID) ([]Product, error)
	ListBound(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Product, error)
	CountBound(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (map[string]int64, error)

	// Reserve binds the filtered units to the order in a single conditional
	// update. Only units still free or already bound to the same order match.
	Reserve(ctx context.Context, db *gorm.DB, filter ReserveFilter) (int64, error)
	Release(ctx context.Context, db *gorm.DB, serials []string) (int64, error)
	ReleaseByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int64, error)
	ReleaseByOrderAndTypes(ctx context.Context, db *gorm.DB, orderID snowflake.ID, types []string) (int64, error)
	SetCondition(ctx context.Context, db *gorm.DB, serials []string, functional bool) (int64, error)
	// TransferOwnership moves units to a new owner and clears their reservation.
	TransferOwnership(ctx context.Context, db *gorm.DB, serials []string, owner string) (int64, error)
}

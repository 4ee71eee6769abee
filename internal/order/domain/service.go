package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type LineItemInput struct {
	TypeName string `json:"type_name"`
	Quantity int64  `json:"quantity"`
}

type CreateRequest struct {
	ClientID   string          `json:"client_id"`
	SupplierID string          `json:"supplier_id"`
	OrderDate  *time.Time      `json:"order_date"`
	Items      []LineItemInput `json:"items"`
}

type OrderDetail struct {
	Order
	Items []LineItem `json:"items"`
}

type ListRequest struct {
	Business string
	History  bool
	From     *time.Time
	To       *time.Time
}

type ReplaceResult struct {
	Updated  int64 `json:"updated"`
	Inserted int64 `json:"inserted"`
	Deleted  int64 `json:"deleted"`
	Released int64 `json:"released"`
}

type DeleteResult struct {
	Released  int64 `json:"released"`
	LineItems int64 `json:"line_items"`
	Affected  int64 `json:"affected"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (OrderDetail, error)
	Get(ctx context.Context, id snowflake.ID) (*OrderDetail, error)
	Sides(ctx context.Context, id snowflake.ID) (*Sides, error)
	List(ctx context.Context, req ListRequest) ([]Order, error)
	ReplaceLineItems(ctx context.Context, id snowflake.ID, items []LineItemInput) (ReplaceResult, error)
	Delete(ctx context.Context, id snowflake.ID) (DeleteResult, error)
}

var (
	ErrInvalidClient    = errors.New("invalid_client")
	ErrInvalidSupplier  = errors.New("invalid_supplier")
	ErrInvalidTypeName  = errors.New("invalid_type_name")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrInvalidDateRange = errors.New("invalid_date_range")
	ErrDuplicateType    = errors.New("duplicate_type")
	ErrEmptyOrder       = errors.New("empty_order")
	ErrOrderCompleted   = errors.New("order_completed")
)

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/smallbiznis/stockroute/internal/order/domain"
)

type OrderExpansion struct {
	OrderID snowflake.ID       `json:"order_id"`
	Sides   *orderdomain.Sides `json:"sides,omitempty"`
	Units   []ProductMovement  `json:"units"`
	Stats   []TypeSold         `json:"stats"`
}

type Service interface {
	// ExpandOrder returns nil when neither the order nor any movement exists.
	ExpandOrder(ctx context.Context, orderID snowflake.ID) (*OrderExpansion, error)
}

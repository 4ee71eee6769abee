package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Order is open while CompletionDate is nil.
type Order struct {
	OrderID        snowflake.ID `gorm:"column:order_id;primaryKey;autoIncrement:false" json:"order_id"`
	ClientID       string       `gorm:"column:client_id;not null" json:"client_id"`
	SupplierID     string       `gorm:"column:supplier_id;not null" json:"supplier_id"`
	OrderDate      time.Time    `gorm:"column:order_date;not null" json:"order_date"`
	CompletionDate *time.Time   `gorm:"column:completion_date" json:"completion_date,omitempty"`
}

func (Order) TableName() string { return "orders" }

func (o Order) Completed() bool { return o.CompletionDate != nil }

// LineItem is the requested quantity of one type within an order.
type LineItem struct {
	OrderID  snowflake.ID `gorm:"column:order_id;primaryKey;autoIncrement:false" json:"-"`
	TypeName string       `gorm:"column:type_name;primaryKey" json:"type_name"`
	Quantity int64        `gorm:"column:quantity;not null" json:"quantity"`
}

func (LineItem) TableName() string { return "specific_orders" }

type Sides struct {
	ClientID   string `json:"client_id"`
	SupplierID string `json:"supplier_id"`
}

type ListFilter struct {
	Business string
	History  bool
	From     *time.Time
	To       *time.Time
}

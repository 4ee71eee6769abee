package domain

import "github.com/bwmarrin/snowflake"

// Product is one serialized unit held by a business.
type Product struct {
	SerialNumber   string        `gorm:"column:serial_number;primaryKey" json:"serial_number"`
	TypeName       string        `gorm:"column:type_name;not null" json:"type_name"`
	OwnerID        string        `gorm:"column:owner_id;not null" json:"owner_id"`
	Producent      string        `gorm:"column:producent" json:"producent"`
	Model          string        `gorm:"column:model" json:"model"`
	Condition      bool          `gorm:"column:product_condition" json:"condition"`
	AdditionalInfo *string       `gorm:"column:additional_info" json:"additional_info,omitempty"`
	AppearInOrder  *snowflake.ID `gorm:"column:appear_in_order" json:"appear_in_order,omitempty"`
}

func (Product) TableName() string { return "products" }

// Reserved reports whether the unit is bound to an order.
func (p Product) Reserved() bool { return p.AppearInOrder != nil }

// CriticalLevel is the low-stock threshold for a (business, type) pair. A nil
// amount means no threshold is set.
type CriticalLevel struct {
	Business       string `gorm:"column:business;primaryKey" json:"business"`
	TypeName       string `gorm:"column:type_name;primaryKey" json:"type_name"`
	CriticalAmount *int64 `gorm:"column:critical_amount" json:"critical_amount"`
}

func (CriticalLevel) TableName() string { return "critical_levels" }

// TypeCount aggregates the units of one type held by a business.
type TypeCount struct {
	TypeName   string `gorm:"column:type_name"`
	Total      int64  `gorm:"column:total"`
	Functional int64  `gorm:"column:functional"`
	Reserved   int64  `gorm:"column:reserved"`
}

// ReserveFilter is the compare-and-set guard of a reservation update.
type ReserveFilter struct {
	OrderID snowflake.ID
	Owner   string
	Types   []string
	Serials []string
}

package domain

import "github.com/bwmarrin/snowflake"

// ProductMovement is the point-in-time copy of a unit handed over when an
// order completed. Rows are append-only.
type ProductMovement struct {
	OrderID      snowflake.ID `gorm:"column:order_id;primaryKey;autoIncrement:false" json:"order_id"`
	SerialNumber string       `gorm:"column:serial_number;primaryKey" json:"serial_number"`
	TypeName     string       `gorm:"column:type_name;not null" json:"type_name"`
	Producent    string       `gorm:"column:producent" json:"producent"`
	Model        string       `gorm:"column:model" json:"model"`
}

func (ProductMovement) TableName() string { return "product_movements" }

type TypeSold struct {
	TypeName string `gorm:"column:type_name" json:"Type"`
	Sold     int64  `gorm:"column:sold" json:"Sold"`
}

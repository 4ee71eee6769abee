package domain

type Business struct {
	Name      string `gorm:"column:name;primaryKey" json:"name"`
	IsService bool   `gorm:"column:is_service;not null" json:"is_service"`
}

func (Business) TableName() string { return "businesses" }

package model

import (
	"time"

	"gorm.io/datatypes"
)

// Plan 套餐目录表
// features 为 JSON 列，承载时薪/超额时薪/结转百分比等扩展属性，
// 新增展示属性不需要改表
type Plan struct {
	ID           string         `gorm:"primaryKey;type:varchar(36)"`
	Name         string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	MonthlyPrice float64        `gorm:"type:decimal(10,2);not null"`
	QuotaHours   float64        `gorm:"type:decimal(8,2);not null"`
	Features     datatypes.JSON `gorm:"type:json"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Plan) TableName() string {
	return "plans"
}

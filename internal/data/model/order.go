package model

import (
	"time"
)

// Order 支付订单表
// status 只允许 pending->paid / pending->failed 各一次，
// 迁移由条件 UPDATE 保证（见 OrderRepo）
type Order struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)"`
	CustomerID     string     `gorm:"type:varchar(36);not null;index"`
	PlanID         string     `gorm:"type:varchar(36);not null"`
	GatewayOrderID string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	Amount         int64      `gorm:"not null"` // 最小货币单位
	Currency       string     `gorm:"type:varchar(8);not null"`
	Status         string     `gorm:"type:varchar(16);not null;default:'pending';index"`
	Purpose        string     `gorm:"type:varchar(16);not null;default:'plan'"`
	TopupHours     float64    `gorm:"type:decimal(8,2);not null;default:0"`
	PaidAt         *time.Time `gorm:""`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

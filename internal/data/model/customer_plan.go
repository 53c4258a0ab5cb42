package model

import (
	"time"
)

// CustomerPlan 客户账期表（一行 = 一个账期）
//
// "单客户单生效账期"由 active_key 上的唯一索引保证：
// 生效时 active_key = customer_id，结束时置 NULL（唯一索引对 NULL 不生效），
// 等价于 (customer_id) WHERE status='active' 的部分唯一索引。
// 并发激活时后到的 INSERT 命中唯一冲突，由数据层翻译为 biz.ErrCycleConflict
type CustomerPlan struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)"`
	CustomerID string     `gorm:"type:varchar(36);not null;index"`
	PlanID     string     `gorm:"type:varchar(36);not null"`
	Status     string     `gorm:"type:varchar(16);not null;default:'active'"`
	ActiveKey  *string    `gorm:"type:varchar(36);uniqueIndex"`
	StartedAt  time.Time  `gorm:"not null"`
	ExpiresAt  time.Time  `gorm:"not null;index"`
	EndedAt    *time.Time `gorm:""`
	// 以下为激活时刻的快照，套餐目录变更不回溯
	IncludedHours           float64   `gorm:"type:decimal(8,2);not null"`
	RolloverPercentSnapshot float64   `gorm:"type:decimal(5,2);not null;default:0"`
	RolloverHoursApplied    float64   `gorm:"type:decimal(8,2);not null;default:0"`
	HourlyRateSnapshot      float64   `gorm:"type:decimal(10,2);not null;default:0"`
	AddlHourlyRateSnapshot  float64   `gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt               time.Time `gorm:"autoCreateTime"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CustomerPlan) TableName() string {
	return "customer_plans"
}

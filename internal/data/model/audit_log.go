package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog 审计日志表（append-only）
type AuditLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement"`
	ActorID    string         `gorm:"type:varchar(36);index"`
	Action     string         `gorm:"type:varchar(32);not null;index"`
	EntityType string         `gorm:"type:varchar(32);not null"`
	EntityID   string         `gorm:"type:varchar(64)"`
	Meta       datatypes.JSON `gorm:"type:json"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}

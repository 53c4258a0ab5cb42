package model

import (
	"time"
)

// Task 任务归属表
// 工时事件只带 task_id，客户维度的窗口查询通过这张表关联
type Task struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	CustomerID string    `gorm:"type:varchar(36);not null;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}

// TaskWorkLog 任务工时事件表（append-only）
type TaskWorkLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	TaskID    string    `gorm:"type:varchar(36);not null;index:idx_task_at,priority:1"`
	Action    string    `gorm:"type:varchar(16);not null"`
	At        time.Time `gorm:"not null;index:idx_task_at,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (TaskWorkLog) TableName() string {
	return "task_work_logs"
}

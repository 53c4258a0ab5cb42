package biz

import (
	"context"
)

// PlanFeatures 套餐目录里的扩展属性（plans.features JSON 列）
type PlanFeatures struct {
	Description          string  `json:"description,omitempty"`
	HourlyRate           float64 `json:"hourly_rate,omitempty"`
	AdditionalHourlyRate float64 `json:"additional_hourly_rate,omitempty"`
	// RolloverPercent 显式结转百分比；为 nil 时回退到配置表
	RolloverPercent *float64 `json:"rollover_percent,omitempty"`
	MostPopular     bool     `json:"most_popular,omitempty"`
	SortIndex       int      `json:"sort_index,omitempty"`
}

// Plan 套餐领域对象（目录项，购买时对其做快照）
type Plan struct {
	ID           string
	Name         string
	MonthlyPrice float64
	QuotaHours   float64
	Features     PlanFeatures
}

// PlanRepo 套餐数据层接口（定义在 biz 层）
type PlanRepo interface {
	GetPlan(ctx context.Context, planID string) (*Plan, error)
	GetPlanByName(ctx context.Context, name string) (*Plan, error)
}

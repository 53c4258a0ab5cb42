package data

import (
	"context"
	"errors"
	"time"

	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/constants"
	"usage-billing-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type billingCycleRepo struct {
	data *Data
	log  *log.Helper
}

// NewBillingCycleRepo 创建账期数据层
func NewBillingCycleRepo(data *Data, logger log.Logger) biz.BillingCycleRepo {
	return &billingCycleRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetActiveCycle 客户当前生效账期，不存在返回 (nil, nil)
func (r *billingCycleRepo) GetActiveCycle(ctx context.Context, customerID string) (*biz.BillingCycle, error) {
	var m model.CustomerPlan
	err := r.data.db.WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, constants.CycleStatusActive).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toCycle(&m), nil
}

// ActivateCycle 在一个事务内结束当前生效账期并插入新账期
//
// 旧账期先锁行再置为 cancelled（active_key 置 NULL 释放唯一位），
// 随后插入的新账期占住 active_key=customer_id。两个并发事务里后提交的
// INSERT 必然命中唯一冲突，整个事务回滚（旧账期也恢复原状），
// 翻译为 biz.ErrCycleConflict 交由业务层读取胜者
func (r *billingCycleRepo) ActivateCycle(ctx context.Context, next *biz.BillingCycle) error {
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.CustomerPlan
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("customer_id = ? AND status = ?", next.CustomerID, constants.CycleStatusActive).
			First(&current).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			now := time.Now()
			if uerr := tx.Model(&model.CustomerPlan{}).
				Where("id = ?", current.ID).
				Updates(map[string]interface{}{
					"status":     constants.CycleStatusCancelled,
					"active_key": nil,
					"ended_at":   now,
				}).Error; uerr != nil {
				return uerr
			}
		}

		activeKey := next.CustomerID
		m := &model.CustomerPlan{
			ID:                      next.ID,
			CustomerID:              next.CustomerID,
			PlanID:                  next.PlanID,
			Status:                  constants.CycleStatusActive,
			ActiveKey:               &activeKey,
			StartedAt:               next.StartedAt,
			ExpiresAt:               next.ExpiresAt,
			IncludedHours:           next.IncludedHours,
			RolloverPercentSnapshot: next.RolloverPercentSnapshot,
			RolloverHoursApplied:    next.RolloverHoursApplied,
			HourlyRateSnapshot:      next.HourlyRateSnapshot,
			AddlHourlyRateSnapshot:  next.AddlHourlyRateSnapshot,
		}
		return tx.Create(m).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return biz.ErrCycleConflict
		}
		return err
	}
	return nil
}

// ExpireOverdueCycles 将所有已到期的生效账期标记为 cancelled
func (r *billingCycleRepo) ExpireOverdueCycles(ctx context.Context, now time.Time) (int64, error) {
	result := r.data.db.WithContext(ctx).Model(&model.CustomerPlan{}).
		Where("status = ? AND expires_at <= ?", constants.CycleStatusActive, now).
		Updates(map[string]interface{}{
			"status":     constants.CycleStatusCancelled,
			"active_key": nil,
			"ended_at":   now,
		})
	return result.RowsAffected, result.Error
}

func toCycle(m *model.CustomerPlan) *biz.BillingCycle {
	return &biz.BillingCycle{
		ID:                      m.ID,
		CustomerID:              m.CustomerID,
		PlanID:                  m.PlanID,
		Status:                  m.Status,
		StartedAt:               m.StartedAt,
		ExpiresAt:               m.ExpiresAt,
		EndedAt:                 m.EndedAt,
		IncludedHours:           m.IncludedHours,
		RolloverPercentSnapshot: m.RolloverPercentSnapshot,
		RolloverHoursApplied:    m.RolloverHoursApplied,
		HourlyRateSnapshot:      m.HourlyRateSnapshot,
		AddlHourlyRateSnapshot:  m.AddlHourlyRateSnapshot,
	}
}

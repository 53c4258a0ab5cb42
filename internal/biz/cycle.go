package biz

import (
	"context"
	"errors"
	"time"

	"usage-billing-service/internal/constants"
	"usage-billing-service/internal/metrics"

	billingErrors "usage-billing-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// ErrCycleConflict 并发激活冲突：同客户已有生效账期
// 由数据层在唯一索引冲突时返回，业务层据此读取胜者而不是报错
var ErrCycleConflict = errors.New("active billing cycle already exists")

// BillingCycle 账期领域对象（customer_plans 行）
// 金额与额度字段都是激活时刻的快照，套餐目录后续变更不影响进行中的账期
type BillingCycle struct {
	ID                      string
	CustomerID              string
	PlanID                  string
	Status                  string // active/cancelled
	StartedAt               time.Time
	ExpiresAt               time.Time
	EndedAt                 *time.Time
	IncludedHours           float64
	RolloverPercentSnapshot float64
	RolloverHoursApplied    float64
	HourlyRateSnapshot      float64
	AddlHourlyRateSnapshot  float64
}

// BillingCycleRepo 账期数据层接口（定义在 biz 层）
type BillingCycleRepo interface {
	// GetActiveCycle 客户当前生效账期，不存在时返回 (nil, nil)
	GetActiveCycle(ctx context.Context, customerID string) (*BillingCycle, error)
	// ActivateCycle 在一个事务内结束旧账期并插入新账期；
	// "单客户单生效账期"唯一索引冲突时返回 ErrCycleConflict
	ActivateCycle(ctx context.Context, next *BillingCycle) error
	// ExpireOverdueCycles 将所有已过期的生效账期标记为 cancelled，返回影响行数
	ExpireOverdueCycles(ctx context.Context, now time.Time) (int64, error)
}

// AuditLog 审计日志领域对象
type AuditLog struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Meta       map[string]interface{}
}

// AuditLogRepo 审计日志数据层接口（定义在 biz 层）
type AuditLogRepo interface {
	CreateAuditLog(ctx context.Context, entry *AuditLog) error
}

// CycleUseCase 账期激活业务逻辑
type CycleUseCase struct {
	repo    BillingCycleRepo
	plans   PlanRepo
	audit   AuditLogRepo
	usage   *UsageUseCase
	conf    *BillingConfig
	log     *log.Helper
	metrics *metrics.BillingMetrics
}

// NewCycleUseCase 创建账期 UseCase
func NewCycleUseCase(
	repo BillingCycleRepo,
	plans PlanRepo,
	audit AuditLogRepo,
	usage *UsageUseCase,
	conf *BillingConfig,
	logger log.Logger,
) *CycleUseCase {
	return &CycleUseCase{
		repo:    repo,
		plans:   plans,
		audit:   audit,
		usage:   usage,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// ActivePlanID 客户当前生效账期的套餐ID，没有生效账期时返回空串
func (uc *CycleUseCase) ActivePlanID(ctx context.Context, customerID string) (string, error) {
	cycle, err := uc.repo.GetActiveCycle(ctx, customerID)
	if err != nil {
		return "", pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeCycleGetFailed)
	}
	if cycle == nil {
		return "", nil
	}
	return cycle.PlanID, nil
}

// ActivateForOrder 为已支付的套餐订单激活新账期
//
// webhook 与客户端轮询会并发地用同一笔订单调用到这里，幂等性由两层保证：
// 订单层的 pending->paid 条件更新（调用方负责），以及这里的唯一索引冲突恢复。
// 冲突即并发激活已经成功，重读胜者并按成功返回
func (uc *CycleUseCase) ActivateForOrder(ctx context.Context, order *Order) (string, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.ActivationDuration.Observe(time.Since(startTime).Seconds())
		}
	}()

	plan, err := uc.plans.GetPlan(ctx, order.PlanID)
	if err != nil {
		return "", pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodePlanGetFailed)
	}
	if plan == nil {
		return "", pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodePlanNotFound)
	}

	now := time.Now()
	next := &BillingCycle{
		ID:                      uuid.New().String(),
		CustomerID:              order.CustomerID,
		PlanID:                  plan.ID,
		Status:                  constants.CycleStatusActive,
		StartedAt:               now,
		ExpiresAt:               now.AddDate(0, uc.conf.CycleMonths, 0),
		IncludedHours:           plan.QuotaHours,
		RolloverPercentSnapshot: uc.resolveRolloverPercent(plan),
		HourlyRateSnapshot:      plan.Features.HourlyRate,
		AddlHourlyRateSnapshot:  plan.Features.AdditionalHourlyRate,
	}

	// 上一账期：按实际用量计算可结转的工时
	prev, err := uc.repo.GetActiveCycle(ctx, order.CustomerID)
	if err != nil {
		return "", pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeCycleGetFailed)
	}
	if prev != nil {
		windowEnd := prev.ExpiresAt
		if now.Before(windowEnd) {
			windowEnd = now
		}
		usedHours, err := uc.usage.UsedHours(ctx, order.CustomerID, prev.StartedAt, windowEnd)
		if err != nil {
			return "", err
		}
		next.RolloverHoursApplied = ComputeRollover(prev, usedHours)
	}

	if err := uc.repo.ActivateCycle(ctx, next); err != nil {
		if errors.Is(err, ErrCycleConflict) {
			// 并发激活（webhook 与轮询同时确认）已由对方完成，读取胜者即可
			if uc.metrics != nil {
				uc.metrics.ActivationTotal.WithLabelValues(constants.ActivationResultRecovered).Inc()
			}
			winner, rerr := uc.repo.GetActiveCycle(ctx, order.CustomerID)
			if rerr != nil {
				return "", pkgErrors.WrapErrorWithLang(ctx, rerr, billingErrors.ErrCodeCycleGetFailed)
			}
			if winner != nil {
				return winner.PlanID, nil
			}
			return order.PlanID, nil
		}
		return "", pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeCycleActivateFailed)
	}

	if uc.metrics != nil {
		uc.metrics.ActivationTotal.WithLabelValues(constants.ActivationResultActivated).Inc()
		uc.metrics.RolloverHours.Observe(next.RolloverHoursApplied)
	}

	uc.writeActivationAudit(ctx, order, prev)

	uc.log.Infof("Billing cycle activated: customer_id=%s, plan_id=%s, rollover_hours=%.2f, expires_at=%s",
		order.CustomerID, plan.ID, next.RolloverHoursApplied, next.ExpiresAt.Format(time.RFC3339))
	return plan.ID, nil
}

// ExpireOverdue 结束所有已过期的生效账期（cron 调用）
func (uc *CycleUseCase) ExpireOverdue(ctx context.Context) (int64, error) {
	return uc.repo.ExpireOverdueCycles(ctx, time.Now())
}

// writeActivationAudit 记录激活审计日志（失败不影响主流程）
func (uc *CycleUseCase) writeActivationAudit(ctx context.Context, order *Order, prev *BillingCycle) {
	action := constants.AuditActionPlanPurchase
	meta := map[string]interface{}{"gateway_order_id": order.GatewayOrderID}
	switch {
	case prev == nil:
	case prev.PlanID != order.PlanID:
		action = constants.AuditActionPlanUpgrade
		meta["from_plan_id"] = prev.PlanID
		meta["to_plan_id"] = order.PlanID
	default:
		action = constants.AuditActionPlanRenewal
		meta["plan_id"] = order.PlanID
	}

	if err := uc.audit.CreateAuditLog(ctx, &AuditLog{
		ActorID:    order.CustomerID,
		Action:     action,
		EntityType: "order",
		EntityID:   order.ID,
		Meta:       meta,
	}); err != nil {
		uc.log.Warnf("failed to write activation audit log: order_id=%s, error=%v", order.ID, err)
	}
}

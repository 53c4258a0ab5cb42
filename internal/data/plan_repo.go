package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/constants"
	"usage-billing-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// 套餐缓存过期时间
// 套餐目录极少变更，且账期内的价格/额度走快照不受目录影响
const planCacheTTL = 5 * time.Minute

type planRepo struct {
	data *Data
	log  *log.Helper
}

// NewPlanRepo 创建套餐数据层
func NewPlanRepo(data *Data, logger log.Logger) biz.PlanRepo {
	return &planRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetPlan 按ID查询套餐（缓存优先）
func (r *planRepo) GetPlan(ctx context.Context, planID string) (*biz.Plan, error) {
	cacheKey := constants.RedisKeyPlan + planID
	if plan := r.fromCache(ctx, cacheKey); plan != nil {
		return plan, nil
	}

	var m model.Plan
	if err := r.data.db.WithContext(ctx).Where("id = ?", planID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	plan, err := toPlan(&m)
	if err != nil {
		return nil, err
	}
	r.toCache(ctx, cacheKey, plan)
	return plan, nil
}

// GetPlanByName 按名称查询套餐（缓存优先）
func (r *planRepo) GetPlanByName(ctx context.Context, name string) (*biz.Plan, error) {
	cacheKey := constants.RedisKeyPlan + "name:" + name
	if plan := r.fromCache(ctx, cacheKey); plan != nil {
		return plan, nil
	}

	var m model.Plan
	if err := r.data.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	plan, err := toPlan(&m)
	if err != nil {
		return nil, err
	}
	r.toCache(ctx, cacheKey, plan)
	return plan, nil
}

// fromCache 读缓存，任何失败都按未命中处理
func (r *planRepo) fromCache(ctx context.Context, key string) *biz.Plan {
	raw, err := r.data.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warnf("plan cache read failed: key=%s, error=%v", key, err)
		}
		return nil
	}
	var plan biz.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		r.log.Warnf("plan cache decode failed: key=%s, error=%v", key, err)
		return nil
	}
	return &plan
}

// toCache 写缓存，失败只记日志
func (r *planRepo) toCache(ctx context.Context, key string, plan *biz.Plan) {
	raw, err := json.Marshal(plan)
	if err != nil {
		return
	}
	if err := r.data.rdb.Set(ctx, key, raw, planCacheTTL).Err(); err != nil {
		r.log.Warnf("plan cache write failed: key=%s, error=%v", key, err)
	}
}

// toPlan 模型转领域对象，解析 features JSON
func toPlan(m *model.Plan) (*biz.Plan, error) {
	plan := &biz.Plan{
		ID:           m.ID,
		Name:         m.Name,
		MonthlyPrice: m.MonthlyPrice,
		QuotaHours:   m.QuotaHours,
	}
	if len(m.Features) > 0 {
		if err := json.Unmarshal(m.Features, &plan.Features); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

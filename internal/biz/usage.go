package biz

import (
	"context"
	"math"
	"time"

	"usage-billing-service/internal/constants"
	"usage-billing-service/internal/metrics"

	billingErrors "usage-billing-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// TaskWorkEvent 任务工时事件（任务生命周期的一次状态切换）
// 事件由任务服务写入，对计费核心只读
type TaskWorkEvent struct {
	TaskID string
	Action string // start/resume/pause/complete
	At     time.Time
}

// IngestWorkEvent MQ 投递的工时事件报文
type IngestWorkEvent struct {
	TaskID     string    `json:"task_id"`
	CustomerID string    `json:"customer_id"`
	Action     string    `json:"action"`
	At         time.Time `json:"at"`
}

// WorkEventRepo 工时事件数据层接口（定义在 biz 层）
type WorkEventRepo interface {
	// ListWorkEvents 返回客户在时间窗口内的事件，按 (task_id, at) 升序
	ListWorkEvents(ctx context.Context, customerID string, from, to time.Time) ([]*TaskWorkEvent, error)
	CreateWorkEvents(ctx context.Context, events []*IngestWorkEvent) error
}

// RateLimiter 单用户限流接口（由 ratelimit 包实现，计数存放在 Redis，
// 多实例部署下限流依然成立）
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// AccumulateSeconds 重放工时事件流，累计窗口内的有效工作秒数
//
// 前置条件：events 已按 (task_id, at) 升序排列，由数据层的 ORDER BY 保证，
// 这里不做防御性重排。start/resume 开区间，pause/complete 关区间；
// 切换任务或事件流结束时仍未关闭的区间，一律在窗口末端冲销（flush），
// 保证每个打开的区间最终都会被计入且只计入一次
func AccumulateSeconds(events []*TaskWorkEvent, windowStart, windowEnd time.Time) float64 {
	var (
		seconds     float64
		running     bool
		runStart    time.Time
		currentTask string
	)

	flush := func() {
		if running {
			seconds += elapsedSeconds(runStart, windowEnd)
			running = false
		}
	}

	for _, e := range events {
		if e.TaskID != currentTask {
			// 切换任务：冲销上一个任务未关闭的区间，避免跨任务串时长
			flush()
			currentTask = e.TaskID
		}
		switch e.Action {
		case constants.WorkActionStart, constants.WorkActionResume:
			if running {
				// 重复的 start/resume 不重复开区间
				continue
			}
			startAt := e.At
			if startAt.Before(windowStart) {
				startAt = windowStart
			}
			// 窗口末端之后的 start 不产生任何时长
			if startAt.Before(windowEnd) {
				running = true
				runStart = startAt
			}
		case constants.WorkActionPause, constants.WorkActionComplete:
			// 没有成对 start 的 pause/complete 直接忽略
			if !running {
				continue
			}
			endAt := e.At
			if endAt.After(windowEnd) {
				endAt = windowEnd
			}
			if endAt.After(runStart) {
				seconds += elapsedSeconds(runStart, endAt)
			}
			running = false
		}
	}
	flush()

	return seconds
}

// elapsedSeconds 两个时刻之间的秒数，不为负
func elapsedSeconds(from, to time.Time) float64 {
	return math.Max(0, to.Sub(from).Seconds())
}

// UsageFigures 额度消耗结果（未舍入）
type UsageFigures struct {
	UsedHours      float64
	RemainingHours float64
	OverageHours   float64
	OverageCost    float64
}

// SummarizeUsage 根据已用工时与套餐额度计算剩余/超额
// 额度池 = 套餐包含工时 + 上期结转工时；超额部分按超额时薪计价
// 舍入只在展示边界做，内部保留全精度避免累计误差
func SummarizeUsage(usedHours, includedHours, rolloverApplied, addlHourlyRate float64) UsageFigures {
	pool := includedHours + rolloverApplied
	return UsageFigures{
		UsedHours:      usedHours,
		RemainingHours: math.Max(0, pool-usedHours),
		OverageHours:   math.Max(0, usedHours-pool),
		OverageCost:    math.Max(0, usedHours-pool) * addlHourlyRate,
	}
}

// Round2 四舍五入到两位小数（仅用于展示）
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// UsageSummary 当前账期的用量汇总（展示值，已舍入）
type UsageSummary struct {
	PeriodStart          time.Time
	PeriodEnd            time.Time
	DaysLeft             int
	IncludedHours        float64
	RolloverHoursApplied float64
	UsedHours            float64
	RemainingHours       float64
	OverageHours         float64
	AddlHourlyRate       float64
	OverageCost          float64
}

// UsageUseCase 用量业务逻辑
type UsageUseCase struct {
	events  WorkEventRepo
	cycles  BillingCycleRepo
	limiter RateLimiter
	conf    *BillingConfig
	log     *log.Helper
	metrics *metrics.BillingMetrics
}

// NewUsageUseCase 创建用量 UseCase
func NewUsageUseCase(
	events WorkEventRepo,
	cycles BillingCycleRepo,
	limiter RateLimiter,
	conf *BillingConfig,
	logger log.Logger,
) *UsageUseCase {
	return &UsageUseCase{
		events:  events,
		cycles:  cycles,
		limiter: limiter,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// UsedHours 客户在窗口内的已用工时（事件快照按次取，不做跨请求缓存）
func (uc *UsageUseCase) UsedHours(ctx context.Context, customerID string, from, to time.Time) (float64, error) {
	events, err := uc.events.ListWorkEvents(ctx, customerID, from, to)
	if err != nil {
		return 0, pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeUsageQueryFailed)
	}
	return AccumulateSeconds(events, from, to) / 3600, nil
}

// Summary 当前账期的用量汇总
func (uc *UsageUseCase) Summary(ctx context.Context, customerID string) (*UsageSummary, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.UsageSummaryDuration.Observe(time.Since(startTime).Seconds())
		}
	}()

	if uc.limiter != nil {
		allowed, err := uc.limiter.Allow(ctx, "usage:"+customerID)
		if err != nil {
			uc.log.Warnf("rate limiter unavailable, allowing request: %v", err)
		} else if !allowed {
			if uc.metrics != nil {
				uc.metrics.RateLimitRejectedTotal.WithLabelValues("usage_summary").Inc()
			}
			return nil, pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeRateLimited)
		}
	}

	cycle, err := uc.cycles.GetActiveCycle(ctx, customerID)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeCycleGetFailed)
	}
	if cycle == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeNoActiveCycle)
	}

	now := time.Now()
	effectiveEnd := cycle.ExpiresAt
	if now.Before(effectiveEnd) {
		effectiveEnd = now
	}

	events, err := uc.events.ListWorkEvents(ctx, customerID, cycle.StartedAt, cycle.ExpiresAt)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeUsageQueryFailed)
	}

	usedHours := AccumulateSeconds(events, cycle.StartedAt, effectiveEnd) / 3600
	figures := SummarizeUsage(usedHours, cycle.IncludedHours, cycle.RolloverHoursApplied, cycle.AddlHourlyRateSnapshot)

	if uc.metrics != nil {
		uc.metrics.UsageSummaryTotal.Inc()
		if figures.OverageHours > 0 {
			uc.metrics.OverageDetected.Inc()
		}
	}

	daysLeft := int(math.Ceil(cycle.ExpiresAt.Sub(now).Hours() / 24))
	if daysLeft < 0 {
		daysLeft = 0
	}

	return &UsageSummary{
		PeriodStart:          cycle.StartedAt,
		PeriodEnd:            cycle.ExpiresAt,
		DaysLeft:             daysLeft,
		IncludedHours:        cycle.IncludedHours,
		RolloverHoursApplied: cycle.RolloverHoursApplied,
		UsedHours:            Round2(figures.UsedHours),
		RemainingHours:       Round2(figures.RemainingHours),
		OverageHours:         Round2(figures.OverageHours),
		AddlHourlyRate:       Round2(cycle.AddlHourlyRateSnapshot),
		OverageCost:          Round2(figures.OverageCost),
	}, nil
}

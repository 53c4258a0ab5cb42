package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics 计费服务指标
type BillingMetrics struct {
	// 订单相关指标
	OrderCreateTotal    *prometheus.CounterVec // 订单创建总数（按用途、状态）
	OrderCreateDuration prometheus.Histogram   // 订单创建耗时
	OrderAmount         *prometheus.CounterVec // 订单金额（最小货币单位，按用途）

	// 支付确认相关指标
	PaymentVerifyTotal    *prometheus.CounterVec   // 支付确认总数（按来源、结果）
	PaymentVerifyDuration *prometheus.HistogramVec // 支付确认耗时（按来源）
	WebhookTotal          *prometheus.CounterVec   // webhook 回调总数（按事件、结果）

	// 账期激活相关指标
	ActivationTotal    *prometheus.CounterVec // 账期激活总数（按结果）
	ActivationDuration prometheus.Histogram   // 账期激活耗时
	RolloverHours      prometheus.Histogram   // 单次激活结转的工时数

	// 用量相关指标
	UsageSummaryTotal    prometheus.Counter   // 用量查询总数
	UsageSummaryDuration prometheus.Histogram // 用量查询耗时
	OverageDetected      prometheus.Counter   // 出现超额的用量查询数

	// 限流相关指标
	RateLimitRejectedTotal *prometheus.CounterVec // 限流拒绝总数（按接口）

	// 分布式锁相关指标
	LockAcquireTotal    *prometheus.CounterVec // 锁获取总数（按结果）
	LockAcquireDuration prometheus.Histogram   // 锁获取耗时
}

// NewBillingMetrics 创建计费服务指标
func NewBillingMetrics() *BillingMetrics {
	return &BillingMetrics{
		// 订单指标
		OrderCreateTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_order_create_total",
				Help: "Total number of created orders",
			},
			[]string{"purpose", "status"}, // purpose: plan/topup
		),
		OrderCreateDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_order_create_duration_seconds",
				Help:    "Duration of order creation",
				Buckets: prometheus.DefBuckets,
			},
		),
		OrderAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_order_amount_total",
				Help: "Total ordered amount in minor currency units",
			},
			[]string{"purpose"},
		),

		// 支付确认指标
		PaymentVerifyTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_payment_verify_total",
				Help: "Total number of payment confirmations",
			},
			[]string{"source", "result"}, // source: client/webhook
		),
		PaymentVerifyDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_payment_verify_duration_seconds",
				Help:    "Duration of payment confirmation handling",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		WebhookTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_webhook_total",
				Help: "Total number of gateway webhook deliveries",
			},
			[]string{"event", "result"},
		),

		// 账期激活指标
		ActivationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_cycle_activation_total",
				Help: "Total number of billing cycle activations",
			},
			[]string{"result"}, // result: activated/recovered/duplicate
		),
		ActivationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_cycle_activation_duration_seconds",
				Help:    "Duration of billing cycle activation",
				Buckets: prometheus.DefBuckets,
			},
		),
		RolloverHours: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_cycle_rollover_hours",
				Help:    "Rollover hours applied per activation",
				Buckets: []float64{0, 0.5, 1, 2, 5, 10, 20, 50},
			},
		),

		// 用量指标
		UsageSummaryTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_usage_summary_total",
				Help: "Total number of usage summary queries",
			},
		),
		UsageSummaryDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_usage_summary_duration_seconds",
				Help:    "Duration of usage summary computation",
				Buckets: prometheus.DefBuckets,
			},
		),
		OverageDetected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_usage_overage_detected_total",
				Help: "Usage summaries that reported overage hours",
			},
		),

		// 限流指标
		RateLimitRejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_rate_limit_rejected_total",
				Help: "Requests rejected by the per-user rate limiter",
			},
			[]string{"endpoint"},
		),

		// 分布式锁指标
		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_lock_acquire_total",
				Help: "Total number of lock acquisition attempts",
			},
			[]string{"result"}, // result: success/failed
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_lock_acquire_duration_seconds",
				Help:    "Duration of lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}
}

// 全局指标实例
var defaultMetrics *BillingMetrics

// InitMetrics 初始化全局指标
func InitMetrics() {
	defaultMetrics = NewBillingMetrics()
}

// GetMetrics 获取全局指标实例
func GetMetrics() *BillingMetrics {
	if defaultMetrics == nil {
		InitMetrics()
	}
	return defaultMetrics
}

package constants

// 时间格式常量
const (
	// TimeFormatMonth 月份格式 (YYYY-MM)
	TimeFormatMonth = "2006-01"
)

// Redis Key 前缀常量
const (
	// RedisKeyPlan 套餐缓存 key 前缀
	RedisKeyPlan = "plan:"
	// RedisKeyRateLimit 限流计数 key 前缀
	RedisKeyRateLimit = "rl:"
	// RedisKeyCycleSweepLock 账期过期清理锁 key
	RedisKeyCycleSweepLock = "cycle:sweep:lock"
)

// 订单状态常量
const (
	// OrderStatusPending 待支付
	OrderStatusPending = "pending"
	// OrderStatusPaid 支付成功
	OrderStatusPaid = "paid"
	// OrderStatusFailed 支付失败
	OrderStatusFailed = "failed"
)

// 订单用途常量
const (
	// OrderPurposePlan 套餐购买
	OrderPurposePlan = "plan"
	// OrderPurposeTopup 加购工时
	OrderPurposeTopup = "topup"
)

// 账期状态常量
const (
	// CycleStatusActive 生效中
	CycleStatusActive = "active"
	// CycleStatusCancelled 已结束
	CycleStatusCancelled = "cancelled"
)

// 工时事件动作常量
const (
	// WorkActionStart 开始任务
	WorkActionStart = "start"
	// WorkActionResume 恢复任务
	WorkActionResume = "resume"
	// WorkActionPause 暂停任务
	WorkActionPause = "pause"
	// WorkActionComplete 完成任务
	WorkActionComplete = "complete"
)

// 网关事件常量（Razorpay webhook）
const (
	// GatewayEventPaymentCaptured 支付已捕获
	GatewayEventPaymentCaptured = "payment.captured"
	// GatewayEventOrderPaid 订单已支付
	GatewayEventOrderPaid = "order.paid"
	// GatewayEventPaymentFailed 支付失败
	GatewayEventPaymentFailed = "payment.failed"
)

// 审计动作常量
const (
	// AuditActionPlanPurchase 首次购买套餐
	AuditActionPlanPurchase = "plan_purchase"
	// AuditActionPlanUpgrade 套餐变更
	AuditActionPlanUpgrade = "plan_upgrade"
	// AuditActionPlanRenewal 同套餐续费
	AuditActionPlanRenewal = "plan_renewal"
	// AuditActionTopupPaid 加购工时支付完成
	AuditActionTopupPaid = "topup_paid"
	// AuditActionWebhookUnknownOrder 未知订单的 webhook 回调
	AuditActionWebhookUnknownOrder = "gateway_webhook_unknown_order"
)

// 激活结果常量（用于指标）
const (
	// ActivationResultActivated 正常激活
	ActivationResultActivated = "activated"
	// ActivationResultRecovered 并发冲突后读取胜者
	ActivationResultRecovered = "recovered"
	// ActivationResultDuplicate 订单已支付，直接返回
	ActivationResultDuplicate = "duplicate"
)

// 校验结果常量（用于指标）
const (
	// VerifyResultOK 校验通过
	VerifyResultOK = "ok"
	// VerifyResultBadSignature 签名不合法
	VerifyResultBadSignature = "bad_signature"
	// VerifyResultForbidden 订单归属不符
	VerifyResultForbidden = "forbidden"
)

// HTTP 头常量
const (
	// HeaderCustomerID 上游网关注入的客户ID
	HeaderCustomerID = "X-Customer-Id"
	// HeaderWebhookSignature Razorpay webhook 签名头
	HeaderWebhookSignature = "X-Razorpay-Signature"
)

// 锁结果常量（用于指标）
const (
	// LockResultSuccess 加锁成功
	LockResultSuccess = "success"
	// LockResultFailed 加锁失败
	LockResultFailed = "failed"
)

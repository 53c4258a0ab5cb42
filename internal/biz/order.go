package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"usage-billing-service/internal/constants"
	"usage-billing-service/internal/metrics"
	"usage-billing-service/internal/signature"

	billingErrors "usage-billing-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Order 支付订单领域对象（一次支付尝试）
type Order struct {
	ID             string
	CustomerID     string
	PlanID         string
	GatewayOrderID string
	Amount         int64 // 最小货币单位
	Currency       string
	Status         string // pending/paid/failed，单向流转且只流转一次
	Purpose        string // plan/topup
	TopupHours     float64
	PaidAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderRepo 订单数据层接口（定义在 biz 层）
type OrderRepo interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByID(ctx context.Context, orderID string) (*Order, error)
	GetOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*Order, error)
	// MarkOrderPaid 条件更新 pending->paid；返回 false 表示本次没有发生状态迁移
	//（订单已被并发确认），调用方不得再触发激活
	MarkOrderPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error)
	// MarkOrderFailed 条件更新 pending->failed
	MarkOrderFailed(ctx context.Context, orderID string) error
}

// OrderUseCase 订单业务逻辑
type OrderUseCase struct {
	repo    OrderRepo
	plans   PlanRepo
	cycles  *CycleUseCase
	gateway PaymentGateway
	audit   AuditLogRepo
	limiter RateLimiter
	conf    *BillingConfig
	log     *log.Helper
	metrics *metrics.BillingMetrics
}

// NewOrderUseCase 创建订单 UseCase
func NewOrderUseCase(
	repo OrderRepo,
	plans PlanRepo,
	cycles *CycleUseCase,
	gateway PaymentGateway,
	audit AuditLogRepo,
	limiter RateLimiter,
	conf *BillingConfig,
	logger log.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		repo:    repo,
		plans:   plans,
		cycles:  cycles,
		gateway: gateway,
		audit:   audit,
		limiter: limiter,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// PlanOrderReply 套餐下单结果
type PlanOrderReply struct {
	InternalOrderID string
	GatewayOrderID  string
	Amount          int64
	Currency        string
	KeyID           string
	PlanID          string
	PlanName        string
}

// CreatePlanOrder 创建套餐购买订单
// plan_id 与 plan_name 二选一；网关下单成功后落一条 pending 订单
func (uc *OrderUseCase) CreatePlanOrder(ctx context.Context, customerID, planID, planName string) (*PlanOrderReply, error) {
	startTime := time.Now()

	if planID == "" && planName == "" {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeMissingPlanSelector)
	}

	var (
		plan *Plan
		err  error
	)
	if planID != "" {
		plan, err = uc.plans.GetPlan(ctx, planID)
	} else {
		plan, err = uc.plans.GetPlanByName(ctx, planName)
	}
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodePlanGetFailed)
	}
	if plan == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodePlanNotFound)
	}

	amount := int64(math.Round(plan.MonthlyPrice * 100))
	receipt := buildReceipt("p_"+sanitizeTag(plan.Name, 10), customerID)

	gwReply, err := uc.gateway.CreateOrder(ctx, &CreateGatewayOrderRequest{
		Amount:   amount,
		Currency: uc.conf.Currency,
		Receipt:  receipt,
		Notes: map[string]interface{}{
			"plan_id":     plan.ID,
			"plan_name":   plan.Name,
			"customer_id": customerID,
		},
	})
	if err != nil {
		uc.log.Errorf("gateway CreateOrder failed: customer_id=%s, plan_id=%s, error=%v", customerID, plan.ID, err)
		if uc.metrics != nil {
			uc.metrics.OrderCreateTotal.WithLabelValues(constants.OrderPurposePlan, constants.OrderStatusFailed).Inc()
		}
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeGatewayCreateFailed)
	}

	order := &Order{
		ID:             uuid.New().String(),
		CustomerID:     customerID,
		PlanID:         plan.ID,
		GatewayOrderID: gwReply.GatewayOrderID,
		Amount:         amount,
		Currency:       uc.conf.Currency,
		Status:         constants.OrderStatusPending,
		Purpose:        constants.OrderPurposePlan,
	}
	if err := uc.repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeOrderCreateFailed)
	}

	if uc.metrics != nil {
		uc.metrics.OrderCreateTotal.WithLabelValues(constants.OrderPurposePlan, constants.OrderStatusPending).Inc()
		uc.metrics.OrderAmount.WithLabelValues(constants.OrderPurposePlan).Add(float64(amount))
		uc.metrics.OrderCreateDuration.Observe(time.Since(startTime).Seconds())
	}

	uc.log.Infof("Plan order created: order_id=%s, gateway_order_id=%s, plan=%s, amount=%d",
		order.ID, order.GatewayOrderID, plan.Name, amount)
	return &PlanOrderReply{
		InternalOrderID: order.ID,
		GatewayOrderID:  order.GatewayOrderID,
		Amount:          amount,
		Currency:        order.Currency,
		KeyID:           uc.conf.GatewayKeyID,
		PlanID:          plan.ID,
		PlanName:        plan.Name,
	}, nil
}

// CreateTopupOrder 创建加购工时订单
// 按当前账期的超额时薪快照计价；快照缺失时回退到套餐目录的
// features.additional_hourly_rate
func (uc *OrderUseCase) CreateTopupOrder(ctx context.Context, customerID string, hours float64) (*PlanOrderReply, error) {
	startTime := time.Now()

	if uc.limiter != nil {
		allowed, err := uc.limiter.Allow(ctx, "topup:"+customerID)
		if err != nil {
			uc.log.Warnf("rate limiter unavailable, allowing request: %v", err)
		} else if !allowed {
			if uc.metrics != nil {
				uc.metrics.RateLimitRejectedTotal.WithLabelValues("create_topup").Inc()
			}
			return nil, pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeRateLimited)
		}
	}

	if hours <= 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeInvalidTopupHours)
	}

	cycle, err := uc.cycles.repo.GetActiveCycle(ctx, customerID)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeCycleGetFailed)
	}
	if cycle == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeNoActiveCycle)
	}

	addlRate := cycle.AddlHourlyRateSnapshot
	if addlRate <= 0 || math.IsNaN(addlRate) || math.IsInf(addlRate, 0) {
		plan, perr := uc.plans.GetPlan(ctx, cycle.PlanID)
		if perr == nil && plan != nil && plan.Features.AdditionalHourlyRate > 0 {
			addlRate = plan.Features.AdditionalHourlyRate
		}
	}
	if addlRate <= 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeAddlRateNotConfigured)
	}

	amount := int64(math.Round(addlRate * hours * 100))
	receipt := buildReceipt("topup", customerID)

	gwReply, err := uc.gateway.CreateOrder(ctx, &CreateGatewayOrderRequest{
		Amount:   amount,
		Currency: uc.conf.Currency,
		Receipt:  receipt,
		Notes: map[string]interface{}{
			"customer_id": customerID,
			"hours":       strconv.FormatFloat(hours, 'f', -1, 64),
		},
	})
	if err != nil {
		uc.log.Errorf("gateway CreateOrder failed for topup: customer_id=%s, error=%v", customerID, err)
		if uc.metrics != nil {
			uc.metrics.OrderCreateTotal.WithLabelValues(constants.OrderPurposeTopup, constants.OrderStatusFailed).Inc()
		}
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeGatewayCreateFailed)
	}

	order := &Order{
		ID:             uuid.New().String(),
		CustomerID:     customerID,
		PlanID:         cycle.PlanID,
		GatewayOrderID: gwReply.GatewayOrderID,
		Amount:         amount,
		Currency:       uc.conf.Currency,
		Status:         constants.OrderStatusPending,
		Purpose:        constants.OrderPurposeTopup,
		TopupHours:     hours,
	}
	if err := uc.repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeOrderCreateFailed)
	}

	if uc.metrics != nil {
		uc.metrics.OrderCreateTotal.WithLabelValues(constants.OrderPurposeTopup, constants.OrderStatusPending).Inc()
		uc.metrics.OrderAmount.WithLabelValues(constants.OrderPurposeTopup).Add(float64(amount))
		uc.metrics.OrderCreateDuration.Observe(time.Since(startTime).Seconds())
	}

	return &PlanOrderReply{
		InternalOrderID: order.ID,
		GatewayOrderID:  order.GatewayOrderID,
		Amount:          amount,
		Currency:        order.Currency,
		KeyID:           uc.conf.GatewayKeyID,
		PlanID:          cycle.PlanID,
	}, nil
}

// OrderStatusReply 订单状态查询结果（轮询用，无副作用）
type OrderStatusReply struct {
	Status       string
	PaidAt       *time.Time
	ActivePlanID string
}

// GetOrderStatus 查询订单状态（校验归属）
func (uc *OrderUseCase) GetOrderStatus(ctx context.Context, customerID, orderID string) (*OrderStatusReply, error) {
	order, err := uc.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeOrderGetFailed)
	}
	if order == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeOrderNotFound)
	}
	if order.CustomerID != customerID {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeOrderForbidden)
	}

	reply := &OrderStatusReply{Status: order.Status, PaidAt: order.PaidAt}
	if order.Status == constants.OrderStatusPaid {
		planID, err := uc.cycles.ActivePlanID(ctx, customerID)
		if err == nil {
			reply.ActivePlanID = planID
		}
	}
	return reply, nil
}

// ConfirmPaymentInput 客户端回调的支付确认参数
type ConfirmPaymentInput struct {
	InternalOrderID string
	GatewayOrderID  string
	PaymentID       string
	Signature       string
}

// ConfirmPayment 客户端回调路径的支付确认
//
// 签名校验通过之前不发生任何状态变更；订单置为 paid 之后即使激活失败
// 也不回滚订单（钱已入账，走人工对账），与 webhook 路径共用同一套幂等保证
func (uc *OrderUseCase) ConfirmPayment(ctx context.Context, customerID string, in *ConfirmPaymentInput) (string, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.PaymentVerifyDuration.WithLabelValues("client").Observe(time.Since(startTime).Seconds())
		}
	}()

	if in.InternalOrderID == "" || in.GatewayOrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return "", pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeMissingPaymentFields)
	}

	order, err := uc.repo.GetOrderByID(ctx, in.InternalOrderID)
	if err != nil {
		return "", pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeOrderGetFailed)
	}
	if order == nil {
		return "", pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeOrderNotFound)
	}
	if order.CustomerID != customerID {
		if uc.metrics != nil {
			uc.metrics.PaymentVerifyTotal.WithLabelValues("client", constants.VerifyResultForbidden).Inc()
		}
		return "", pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeOrderForbidden)
	}
	if order.GatewayOrderID != in.GatewayOrderID {
		return "", pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeGatewayOrderMismatch)
	}

	if !signature.Verify(in.GatewayOrderID, in.PaymentID, in.Signature, uc.conf.GatewayKeySecret) {
		if uc.metrics != nil {
			uc.metrics.PaymentVerifyTotal.WithLabelValues("client", constants.VerifyResultBadSignature).Inc()
		}
		return "", pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeInvalidSignature)
	}

	if uc.metrics != nil {
		uc.metrics.PaymentVerifyTotal.WithLabelValues("client", constants.VerifyResultOK).Inc()
	}

	// 订单级幂等：已支付的订单直接返回当前生效套餐，不再触发激活
	if order.Status == constants.OrderStatusPaid {
		if uc.metrics != nil {
			uc.metrics.ActivationTotal.WithLabelValues(constants.ActivationResultDuplicate).Inc()
		}
		return uc.activePlanOrOrderPlan(ctx, order), nil
	}

	return uc.settlePaidOrder(ctx, order)
}

// HandleWebhook 网关 webhook 路径的支付确认
// 对原始报文做 HMAC 校验；未知订单落审计后按成功应答，避免网关无限重投
func (uc *OrderUseCase) HandleWebhook(ctx context.Context, body []byte, sig string) error {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.PaymentVerifyDuration.WithLabelValues("webhook").Observe(time.Since(startTime).Seconds())
		}
	}()

	if !signature.VerifyWebhook(body, sig, uc.conf.WebhookSecret) {
		if uc.metrics != nil {
			uc.metrics.PaymentVerifyTotal.WithLabelValues("webhook", constants.VerifyResultBadSignature).Inc()
		}
		return pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeInvalidSignature)
	}

	var payload gatewayWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeWebhookBadPayload)
	}

	// payment.captured => payload.payment.entity.order_id
	// order.paid       => payload.order.entity.id
	gatewayOrderID := payload.Payload.Payment.Entity.OrderID
	if gatewayOrderID == "" {
		gatewayOrderID = payload.Payload.Order.Entity.ID
	}
	if gatewayOrderID == "" {
		return pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeWebhookBadPayload)
	}

	order, err := uc.repo.GetOrderByGatewayID(ctx, gatewayOrderID)
	if err != nil {
		return pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeOrderGetFailed)
	}
	if order == nil {
		// 未知订单：留痕供人工排查，向网关应答成功
		if aerr := uc.audit.CreateAuditLog(ctx, &AuditLog{
			Action:     constants.AuditActionWebhookUnknownOrder,
			EntityType: "order",
			Meta:       map[string]interface{}{"gateway_order_id": gatewayOrderID, "event": payload.Event},
		}); aerr != nil {
			uc.log.Warnf("failed to audit unknown webhook order: %v", aerr)
		}
		if uc.metrics != nil {
			uc.metrics.WebhookTotal.WithLabelValues(payload.Event, "unknown_order").Inc()
		}
		return nil
	}

	if order.Status == constants.OrderStatusPaid {
		if uc.metrics != nil {
			uc.metrics.WebhookTotal.WithLabelValues(payload.Event, "already_paid").Inc()
		}
		return nil
	}

	success := payload.Event == constants.GatewayEventPaymentCaptured || payload.Event == constants.GatewayEventOrderPaid
	if !success {
		if err := uc.repo.MarkOrderFailed(ctx, order.ID); err != nil {
			return pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeOrderUpdateFailed)
		}
		if uc.metrics != nil {
			uc.metrics.WebhookTotal.WithLabelValues(payload.Event, constants.OrderStatusFailed).Inc()
		}
		return nil
	}

	if uc.metrics != nil {
		uc.metrics.WebhookTotal.WithLabelValues(payload.Event, constants.OrderStatusPaid).Inc()
	}
	_, err = uc.settlePaidOrder(ctx, order)
	return err
}

// settlePaidOrder 订单置为已支付并完成后续动作（激活账期/加购留痕）
//
// pending->paid 的条件更新是订单级的互斥点：没抢到迁移的一方不再重复激活，
// 直接读取当前生效账期返回
func (uc *OrderUseCase) settlePaidOrder(ctx context.Context, order *Order) (string, error) {
	transitioned, err := uc.repo.MarkOrderPaid(ctx, order.ID, time.Now())
	if err != nil {
		return "", pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeOrderUpdateFailed)
	}
	if !transitioned {
		if uc.metrics != nil {
			uc.metrics.ActivationTotal.WithLabelValues(constants.ActivationResultDuplicate).Inc()
		}
		return uc.activePlanOrOrderPlan(ctx, order), nil
	}

	if order.Purpose == constants.OrderPurposePlan {
		return uc.cycles.ActivateForOrder(ctx, order)
	}

	// 加购订单：只留痕，不改动账期
	if aerr := uc.audit.CreateAuditLog(ctx, &AuditLog{
		ActorID:    order.CustomerID,
		Action:     constants.AuditActionTopupPaid,
		EntityType: "order",
		EntityID:   order.ID,
		Meta:       map[string]interface{}{"hours": order.TopupHours, "amount": order.Amount},
	}); aerr != nil {
		uc.log.Warnf("failed to audit topup payment: order_id=%s, error=%v", order.ID, aerr)
	}
	return uc.activePlanOrOrderPlan(ctx, order), nil
}

// activePlanOrOrderPlan 当前生效套餐ID，读取失败或暂无生效账期时退回订单上的套餐ID
func (uc *OrderUseCase) activePlanOrOrderPlan(ctx context.Context, order *Order) string {
	planID, err := uc.cycles.ActivePlanID(ctx, order.CustomerID)
	if err != nil || planID == "" {
		return order.PlanID
	}
	return planID
}

// gatewayWebhookPayload Razorpay webhook 报文（只解析用到的字段）
type gatewayWebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

var receiptTagPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)

// sanitizeTag 收据片段只保留字母数字并截断
func sanitizeTag(s string, max int) string {
	s = receiptTagPattern.ReplaceAllString(s, "")
	if len(s) > max {
		s = s[:max]
	}
	if s == "" {
		s = "c"
	}
	return s
}

// buildReceipt 构造网关收据号（Razorpay 限制 40 字符）
// 形如 <prefix>_<8位时间戳>_<6位客户片段>
func buildReceipt(prefix, customerID string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if len(ts) > 8 {
		ts = ts[len(ts)-8:]
	}
	receipt := fmt.Sprintf("%s_%s_%s", prefix, ts, sanitizeTag(customerID, 6))
	if len(receipt) > 40 {
		receipt = receipt[:40]
	}
	return receipt
}

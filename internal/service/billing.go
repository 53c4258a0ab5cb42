package service

import (
	"io"
	"time"

	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/constants"

	billingErrors "usage-billing-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// BillingService 面向前端的计费服务
// 客户身份由上游网关注入的 X-Customer-Id 头承载，会话机制不在本服务内
type BillingService struct {
	orders *biz.OrderUseCase
	usage  *biz.UsageUseCase
	log    *log.Helper
}

// NewBillingService 创建 BillingService
func NewBillingService(orders *biz.OrderUseCase, usage *biz.UsageUseCase, logger log.Logger) *BillingService {
	return &BillingService{
		orders: orders,
		usage:  usage,
		log:    log.NewHelper(logger),
	}
}

// customerID 提取调用方客户ID
func customerID(ctx khttp.Context) (string, error) {
	id := ctx.Header().Get(constants.HeaderCustomerID)
	if id == "" {
		return "", pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeUnauthorized)
	}
	return id, nil
}

// CreatePlanOrderRequest 套餐下单请求
type CreatePlanOrderRequest struct {
	PlanID   string `json:"plan_id"`
	PlanName string `json:"plan_name"`
}

// CreateOrderReply 下单响应（前端据此唤起支付）
type CreateOrderReply struct {
	OrderID        string `json:"order_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"key_id"`
	PlanID         string `json:"plan_id"`
	PlanName       string `json:"plan_name,omitempty"`
}

// CreatePlanOrder POST /v1/billing/orders
func (s *BillingService) CreatePlanOrder(ctx khttp.Context) error {
	cust, err := customerID(ctx)
	if err != nil {
		return err
	}

	var req CreatePlanOrderRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	reply, err := s.orders.CreatePlanOrder(ctx, cust, req.PlanID, req.PlanName)
	if err != nil {
		s.log.Errorf("CreatePlanOrder failed: customer_id=%s, error=%v", cust, err)
		return err
	}
	return ctx.Result(200, toOrderReply(reply))
}

// CreateTopupRequest 加购工时请求
type CreateTopupRequest struct {
	Hours float64 `json:"hours"`
}

// CreateTopup POST /v1/billing/topups
func (s *BillingService) CreateTopup(ctx khttp.Context) error {
	cust, err := customerID(ctx)
	if err != nil {
		return err
	}

	var req CreateTopupRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	reply, err := s.orders.CreateTopupOrder(ctx, cust, req.Hours)
	if err != nil {
		s.log.Errorf("CreateTopup failed: customer_id=%s, error=%v", cust, err)
		return err
	}
	return ctx.Result(200, toOrderReply(reply))
}

// OrderStatusReply 订单状态响应
type OrderStatusReply struct {
	OrderID      string `json:"order_id"`
	Status       string `json:"status"`
	PaidAt       string `json:"paid_at,omitempty"`
	ActivePlanID string `json:"active_plan_id,omitempty"`
}

// GetOrderStatus GET /v1/billing/orders/{id}
// 纯读接口，轮询方靠它感知支付结果，不触发任何状态迁移
func (s *BillingService) GetOrderStatus(ctx khttp.Context) error {
	cust, err := customerID(ctx)
	if err != nil {
		return err
	}

	orderID := ctx.Vars().Get("id")
	if orderID == "" {
		return pkgErrors.NewBizErrorWithLang(ctx, billingErrors.ErrCodeOrderNotFound)
	}

	status, err := s.orders.GetOrderStatus(ctx, cust, orderID)
	if err != nil {
		return err
	}

	reply := &OrderStatusReply{
		OrderID:      orderID,
		Status:       status.Status,
		ActivePlanID: status.ActivePlanID,
	}
	if status.PaidAt != nil {
		reply.PaidAt = status.PaidAt.Format(time.RFC3339)
	}
	return ctx.Result(200, reply)
}

// VerifyPaymentRequest 客户端支付回调请求（字段名与网关回调参数对齐）
type VerifyPaymentRequest struct {
	OrderID           string `json:"order_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// VerifyPaymentReply 支付确认响应
type VerifyPaymentReply struct {
	Status       string `json:"status"`
	ActivePlanID string `json:"active_plan_id,omitempty"`
}

// VerifyPayment POST /v1/billing/payments/verify
func (s *BillingService) VerifyPayment(ctx khttp.Context) error {
	cust, err := customerID(ctx)
	if err != nil {
		return err
	}

	var req VerifyPaymentRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	planID, err := s.orders.ConfirmPayment(ctx, cust, &biz.ConfirmPaymentInput{
		InternalOrderID: req.OrderID,
		GatewayOrderID:  req.RazorpayOrderID,
		PaymentID:       req.RazorpayPaymentID,
		Signature:       req.RazorpaySignature,
	})
	if err != nil {
		s.log.Errorf("VerifyPayment failed: customer_id=%s, order_id=%s, error=%v", cust, req.OrderID, err)
		return err
	}
	return ctx.Result(200, &VerifyPaymentReply{
		Status:       constants.OrderStatusPaid,
		ActivePlanID: planID,
	})
}

// WebhookReply webhook 应答
type WebhookReply struct {
	Status string `json:"status"`
}

// Webhook POST /v1/billing/webhook
// 签名校验必须针对原始字节，这里不走 Bind
func (s *BillingService) Webhook(ctx khttp.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return pkgErrors.WrapErrorWithLang(ctx, err, billingErrors.ErrCodeWebhookBadPayload)
	}
	sig := ctx.Header().Get(constants.HeaderWebhookSignature)

	if err := s.orders.HandleWebhook(ctx, body, sig); err != nil {
		s.log.Errorf("Webhook failed: error=%v", err)
		return err
	}
	return ctx.Result(200, &WebhookReply{Status: "ok"})
}

// UsageSummaryReply 当前账期用量汇总响应
type UsageSummaryReply struct {
	PeriodStart          string  `json:"period_start"`
	PeriodEnd            string  `json:"period_end"`
	DaysLeft             int     `json:"days_left"`
	IncludedHours        float64 `json:"included_hours"`
	RolloverHoursApplied float64 `json:"rollover_hours_applied"`
	UsedHours            float64 `json:"used_hours"`
	RemainingHours       float64 `json:"remaining_hours"`
	OverageHours         float64 `json:"overage_hours"`
	AddlHourlyRate       float64 `json:"additional_hourly_rate"`
	OverageCost          float64 `json:"overage_cost"`
}

// UsageSummary GET /v1/billing/usage
func (s *BillingService) UsageSummary(ctx khttp.Context) error {
	cust, err := customerID(ctx)
	if err != nil {
		return err
	}

	summary, err := s.usage.Summary(ctx, cust)
	if err != nil {
		return err
	}

	return ctx.Result(200, &UsageSummaryReply{
		PeriodStart:          summary.PeriodStart.Format(time.RFC3339),
		PeriodEnd:            summary.PeriodEnd.Format(time.RFC3339),
		DaysLeft:             summary.DaysLeft,
		IncludedHours:        summary.IncludedHours,
		RolloverHoursApplied: summary.RolloverHoursApplied,
		UsedHours:            summary.UsedHours,
		RemainingHours:       summary.RemainingHours,
		OverageHours:         summary.OverageHours,
		AddlHourlyRate:       summary.AddlHourlyRate,
		OverageCost:          summary.OverageCost,
	})
}

func toOrderReply(r *biz.PlanOrderReply) *CreateOrderReply {
	return &CreateOrderReply{
		OrderID:        r.InternalOrderID,
		GatewayOrderID: r.GatewayOrderID,
		Amount:         r.Amount,
		Currency:       r.Currency,
		KeyID:          r.KeyID,
		PlanID:         r.PlanID,
		PlanName:       r.PlanName,
	}
}

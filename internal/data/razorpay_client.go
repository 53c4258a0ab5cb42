package data

import (
	"context"
	"fmt"

	"usage-billing-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	razorpay "github.com/razorpay/razorpay-go"
)

type razorpayGateway struct {
	client *razorpay.Client
	log    *log.Helper
}

// NewRazorpayGateway 创建 Razorpay 网关客户端
func NewRazorpayGateway(conf *biz.BillingConfig, logger log.Logger) (biz.PaymentGateway, error) {
	if conf.GatewayKeyID == "" || conf.GatewayKeySecret == "" {
		return nil, fmt.Errorf("gateway credentials are not configured")
	}
	return &razorpayGateway{
		client: razorpay.NewClient(conf.GatewayKeyID, conf.GatewayKeySecret),
		log:    log.NewHelper(logger),
	}, nil
}

// CreateOrder 在网关侧创建订单
// SDK 不接收 context，超时控制依赖其内部 HTTP 客户端
func (g *razorpayGateway) CreateOrder(ctx context.Context, req *biz.CreateGatewayOrderRequest) (*biz.CreateGatewayOrderReply, error) {
	body := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		body["notes"] = req.Notes
	}

	order, err := g.client.Order.Create(body, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create failed: %w", err)
	}

	id, ok := order["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("razorpay order response missing id")
	}
	return &biz.CreateGatewayOrderReply{GatewayOrderID: id}, nil
}

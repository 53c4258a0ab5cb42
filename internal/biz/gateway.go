package biz

import "context"

// PaymentGateway 支付网关客户端接口
// 网关侧的下单/签名生成是不透明的受信原语，核心只依赖这一个操作
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req *CreateGatewayOrderRequest) (*CreateGatewayOrderReply, error)
}

// CreateGatewayOrderRequest 网关下单请求
type CreateGatewayOrderRequest struct {
	Amount   int64  // 最小货币单位（分/派萨）
	Currency string
	Receipt  string
	Notes    map[string]interface{}
}

// CreateGatewayOrderReply 网关下单响应
type CreateGatewayOrderReply struct {
	GatewayOrderID string
}

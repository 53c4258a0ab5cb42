package server

import (
	"usage-billing-service/internal/conf"
	"usage-billing-service/internal/service"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(c *conf.Bootstrap, billingService *service.BillingService) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		if c.Server.Http.TimeoutSeconds > 0 {
			opts = append(opts, http.Timeout(c.Server.Http.Timeout()))
		}
	}
	srv := http.NewServer(opts...)

	route := srv.Route("/v1/billing")
	route.POST("/orders", billingService.CreatePlanOrder)
	route.GET("/orders/{id}", billingService.GetOrderStatus)
	route.POST("/topups", billingService.CreateTopup)
	route.POST("/payments/verify", billingService.VerifyPayment)
	route.POST("/webhook", billingService.Webhook)
	route.GET("/usage", billingService.UsageSummary)

	srv.Handle("/metrics", promhttp.Handler())

	return srv
}

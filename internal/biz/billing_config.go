package biz

import (
	"time"

	"usage-billing-service/internal/conf"
)

// BillingConfig 计费策略配置
type BillingConfig struct {
	Currency         string             // 网关下单币种
	CycleMonths      int                // 账期长度（月）
	RolloverPercents map[string]float64 // 套餐名 -> 结转百分比（遗留回退表）
	RateLimitWindow  time.Duration      // 限流窗口
	RateLimitMax     int64              // 窗口内单用户最大请求数
	GatewayKeyID     string             // 网关 key id（返回给前端发起支付）
	GatewayKeySecret string             // 支付确认签名密钥
	WebhookSecret    string             // webhook 报文签名密钥
}

// NewBillingConfig 从配置创建 BillingConfig
func NewBillingConfig(c *conf.Bootstrap) *BillingConfig {
	config := &BillingConfig{
		Currency:         "INR", // 默认值
		CycleMonths:      1,
		RolloverPercents: make(map[string]float64),
		RateLimitWindow:  10 * time.Second,
		RateLimitMax:     5,
	}
	if c.Billing != nil {
		if c.Billing.Currency != "" {
			config.Currency = c.Billing.Currency
		}
		if c.Billing.CycleMonths > 0 {
			config.CycleMonths = int(c.Billing.CycleMonths)
		}
		for k, v := range c.Billing.RolloverPercents {
			config.RolloverPercents[k] = v
		}
		if c.Billing.RateLimitWindowSeconds > 0 {
			config.RateLimitWindow = time.Duration(c.Billing.RateLimitWindowSeconds) * time.Second
		}
		if c.Billing.RateLimitMax > 0 {
			config.RateLimitMax = c.Billing.RateLimitMax
		}
	}
	if c.Gateway != nil {
		config.GatewayKeyID = c.Gateway.KeyID
		config.GatewayKeySecret = c.Gateway.KeySecret
		config.WebhookSecret = c.Gateway.WebhookSecret
	}
	return config
}

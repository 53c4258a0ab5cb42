package conf

import "time"

// Bootstrap 服务启动配置
// 由 kratos config 从 configs/config.yaml 扫描填充
type Bootstrap struct {
	Server  *Server  `json:"server"`
	Data    *Data    `json:"data"`
	Gateway *Gateway `json:"gateway"`
	Billing *Billing `json:"billing"`
}

// Server 服务端口配置
type Server struct {
	Http *HTTP `json:"http"`
}

// HTTP HTTP 服务配置
type HTTP struct {
	Network string `json:"network"`
	Addr    string `json:"addr"`
	// TimeoutSeconds 请求超时（秒），0 表示使用 kratos 默认值
	TimeoutSeconds int64 `json:"timeout_seconds"`
}

// Timeout 返回请求超时时间
func (h *HTTP) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// Data 数据层配置
type Data struct {
	Database *Database `json:"database"`
	Redis    *Redis    `json:"redis"`
	Rocketmq *Rocketmq `json:"rocketmq"`
}

// Database 数据库配置
type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

// Redis Redis 配置
type Redis struct {
	Addr                string `json:"addr"`
	ReadTimeoutSeconds  int64  `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int64  `json:"write_timeout_seconds"`
}

// ReadTimeout 返回读超时时间
func (r *Redis) ReadTimeout() time.Duration {
	return time.Duration(r.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout 返回写超时时间
func (r *Redis) WriteTimeout() time.Duration {
	return time.Duration(r.WriteTimeoutSeconds) * time.Second
}

// Rocketmq 工时事件消费配置
type Rocketmq struct {
	Enabled     bool     `json:"enabled"`
	NameServers []string `json:"name_servers"`
	GroupName   string   `json:"group_name"`
	Topic       string   `json:"topic"`
	RetryTimes  int32    `json:"retry_times"`
}

// Gateway 支付网关（Razorpay）配置
type Gateway struct {
	KeyID string `json:"key_id"`
	// KeySecret 同时用于下单和支付回调签名校验
	KeySecret string `json:"key_secret"`
	// WebhookSecret webhook 原始报文签名密钥
	WebhookSecret string `json:"webhook_secret"`
}

// Billing 计费策略配置
type Billing struct {
	// Currency 网关下单币种（最小货币单位计价）
	Currency string `json:"currency"`
	// CycleMonths 账期长度（月），默认 1
	CycleMonths int32 `json:"cycle_months"`
	// RolloverPercents 套餐名 -> 结转百分比的遗留回退表
	// 套餐 features.rollover_percent 存在时以后者为准
	RolloverPercents map[string]float64 `json:"rollover_percents"`
	// RateLimitWindowSeconds 限流窗口（秒）
	RateLimitWindowSeconds int64 `json:"rate_limit_window_seconds"`
	// RateLimitMax 窗口内单用户最大请求数
	RateLimitMax int64 `json:"rate_limit_max"`
}

package errors

import (
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	i18nPkg "github.com/gaoyong06/go-pkg/middleware/i18n"
)

func init() {
	// 初始化全局错误管理器（使用项目特定的配置）
	pkgErrors.InitGlobalErrorManager("i18n", i18nPkg.Language)
}

// Usage Billing Service 错误码定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，Usage Billing 固定为 21
//   MM: 模块标识，按业务划分
//   EE: 模块内错误序号
//
// 模块划分：
//   00: 通用模块（复用 go-pkg 通用错误码）
//   01: 订单模块
//   02: 支付确认模块
//   03: 账期模块
//   04: 用量模块
//   05: 套餐模块
//   06-99: 预留扩展

// 订单模块错误码 (210100-210199)
const (
	// ErrCodeOrderNotFound 订单不存在
	ErrCodeOrderNotFound = 210101
	// ErrCodeOrderCreateFailed 订单创建失败
	ErrCodeOrderCreateFailed = 210102
	// ErrCodeOrderForbidden 订单不属于当前客户
	ErrCodeOrderForbidden = 210103
	// ErrCodeOrderGetFailed 查询订单失败
	ErrCodeOrderGetFailed = 210104
	// ErrCodeOrderUpdateFailed 更新订单状态失败
	ErrCodeOrderUpdateFailed = 210105
	// ErrCodeInvalidTopupHours 加购工时数不合法
	ErrCodeInvalidTopupHours = 210106
	// ErrCodeAddlRateNotConfigured 超额时薪未配置
	ErrCodeAddlRateNotConfigured = 210107
)

// 支付确认模块错误码 (210200-210299)
const (
	// ErrCodeMissingPaymentFields 支付确认字段缺失
	ErrCodeMissingPaymentFields = 210201
	// ErrCodeInvalidSignature 支付签名不合法
	ErrCodeInvalidSignature = 210202
	// ErrCodeGatewayOrderMismatch 网关订单号不匹配
	ErrCodeGatewayOrderMismatch = 210203
	// ErrCodeGatewayCreateFailed 网关下单失败
	ErrCodeGatewayCreateFailed = 210204
	// ErrCodeWebhookBadPayload webhook 报文不合法
	ErrCodeWebhookBadPayload = 210205
)

// 账期模块错误码 (210300-210399)
const (
	// ErrCodeNoActiveCycle 无生效账期
	ErrCodeNoActiveCycle = 210301
	// ErrCodeCycleActivateFailed 账期激活失败
	ErrCodeCycleActivateFailed = 210302
	// ErrCodeCycleGetFailed 查询账期失败
	ErrCodeCycleGetFailed = 210303
)

// 用量模块错误码 (210400-210499)
const (
	// ErrCodeUsageQueryFailed 用量查询失败
	ErrCodeUsageQueryFailed = 210401
	// ErrCodeRateLimited 请求过于频繁
	ErrCodeRateLimited = 210402
)

// 套餐模块错误码 (210500-210599)
const (
	// ErrCodePlanNotFound 套餐不存在
	ErrCodePlanNotFound = 210501
	// ErrCodePlanGetFailed 查询套餐失败
	ErrCodePlanGetFailed = 210502
	// ErrCodeMissingPlanSelector 缺少套餐ID或名称
	ErrCodeMissingPlanSelector = 210503
)

// 通用模块错误码 (210700-210799)
const (
	// ErrCodeUnauthorized 缺少客户身份
	ErrCodeUnauthorized = 210701
	// ErrCodeGatewayConfigNil 网关配置为空
	ErrCodeGatewayConfigNil = 210702
)

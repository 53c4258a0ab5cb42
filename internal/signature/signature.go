// Package signature 支付网关回调的 HMAC-SHA256 签名校验
//
// 客户端回调与 webhook 共用同一套原语：对约定的消息体计算 HMAC-SHA256，
// 与网关下发的十六进制签名做恒定时间比较。签名格式非法（非 hex、长度不符）
// 一律按校验失败处理，不单独报错
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verify 校验客户端支付回调签名
// 消息体为 "网关订单ID|支付ID"，密钥为网关 key secret
func Verify(gatewayOrderID, paymentID, sig, secret string) bool {
	return verifyHex([]byte(gatewayOrderID+"|"+paymentID), sig, secret)
}

// VerifyWebhook 校验 webhook 报文签名
// 消息体为请求的原始字节，任何重排/重序列化都会使校验失败，
// 调用方必须传入未经解析的 body
func VerifyWebhook(body []byte, sig, secret string) bool {
	return verifyHex(body, sig, secret)
}

func verifyHex(message []byte, sig, secret string) bool {
	if sig == "" || secret == "" {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hmac.Equal(mac.Sum(nil), got)
}

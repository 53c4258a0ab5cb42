//go:build wireinject
// +build wireinject

package main

import (
	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/conf"
	"usage-billing-service/internal/data"
	"usage-billing-service/internal/ratelimit"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp 初始化应用
func wireApp(*conf.Bootstrap, log.Logger) (*CronApp, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		ratelimit.ProviderSet,
		biz.ProviderSet,
		wire.Struct(new(CronApp), "*"),
	))
}

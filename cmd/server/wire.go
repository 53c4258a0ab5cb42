//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/conf"
	"usage-billing-service/internal/data"
	"usage-billing-service/internal/ratelimit"
	"usage-billing-service/internal/server"
	"usage-billing-service/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Bootstrap, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, ratelimit.ProviderSet, biz.ProviderSet, service.ProviderSet, newApp))
}

//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ad-studio-api/internal/application/audio"
	"ad-studio-api/internal/application/generation"
	"ad-studio-api/internal/application/refine"
	"ad-studio-api/internal/config"
	"ad-studio-api/internal/interfaces/http/handler"
	"ad-studio-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		StorageSet,
		UpstreamSet,
		ApplicationSet,
		RouterSet,
	)
	return nil, nil, nil
}

// StorageSet 会话存储与 redis 依赖
var StorageSet = wire.NewSet(
	ProvideRedisClient,
	ProvideKVStore,
	ProvideRateLimiter,
	ProvidePublisher,
	ProvideRegistry,
)

// UpstreamSet 外部服务适配器
var UpstreamSet = wire.NewSet(
	ProvideScriptwriter,
	ProvideSynthesizer,
)

// ApplicationSet 应用服务
var ApplicationSet = wire.NewSet(
	ProvideVersionOptions,
	ProvideRefineOptions,
	generation.NewService,
	refine.NewService,
	audio.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideJWTManager,
	ProvideRefineHandler,
	handler.NewHealthHandler,
	handler.NewScriptHandler,
	handler.NewVersionHandler,
	handler.NewAudioHandler,
	handler.NewSessionHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)

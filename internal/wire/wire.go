//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"meeting-minutes-api/internal/application/minutes"
	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/infrastructure/llm"
	"meeting-minutes-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 网关（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		OptionalInfraSet,
		ServiceSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeMinutesService 初始化进程内议事录服务（CLI 使用）
func InitializeMinutesService(ctx context.Context, cfg *config.Config) (*minutes.Service, func(), error) {
	wire.Build(
		OptionalInfraSet,
		ServiceSet,
	)
	return nil, nil, nil
}

// InitializeIndexWorker 初始化索引同步 worker（Redis 与 Milvus 必需）
func InitializeIndexWorker(ctx context.Context, cfg *config.Config) (*IndexWorker, func(), error) {
	wire.Build(
		ProvideRedisClient,
		ProvideMilvusClient,
		ProvideMinuteIndex,
		ProvideIndexConsumer,
		wire.Struct(new(IndexWorker), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 初始化建表所需的后端
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*BootstrapLayer, func(), error) {
	wire.Build(ProvideBootstrapLayer)
	return nil, nil, nil
}

// OptionalInfraSet 可选基础设施：不可达时降级而不阻塞启动
var OptionalInfraSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideMilvusClientOptional,
	ProvideStorage,
)

// ServiceSet 流水线与应用服务
var ServiceSet = wire.NewSet(
	llm.NewEinoFactory,
	ProvideEmbedderOptional,
	ProvideRetrievalEngine,
	ProvideContextRetriever,
	ProvideTranscriber,
	ProvideIndexer,
	ProvidePipeline,
	ProvideMinutesService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideRateLimiter,
	ProvideHealthHandler,
	ProvideRouterHandlers,
	router.New,
)

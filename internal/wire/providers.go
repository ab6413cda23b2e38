// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	einoembedding "github.com/cloudwego/eino/components/embedding"

	"meeting-minutes-api/internal/application/audio"
	"meeting-minutes-api/internal/application/minutes"
	"meeting-minutes-api/internal/application/retrieval"
	"meeting-minutes-api/internal/application/transcription"
	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/repository"
	infraembedding "meeting-minutes-api/internal/infrastructure/embedding"
	"meeting-minutes-api/internal/infrastructure/llm"
	"meeting-minutes-api/internal/infrastructure/messaging"
	"meeting-minutes-api/internal/infrastructure/persistence/milvus"
	"meeting-minutes-api/internal/infrastructure/persistence/postgres"
	"meeting-minutes-api/internal/infrastructure/persistence/redis"
	"meeting-minutes-api/internal/infrastructure/persistence/sqlite"
	"meeting-minutes-api/internal/infrastructure/persistence/supabase"
	infratranscription "meeting-minutes-api/internal/infrastructure/transcription"
	"meeting-minutes-api/internal/interfaces/http/handler"
	"meeting-minutes-api/internal/interfaces/http/middleware"
	"meeting-minutes-api/internal/interfaces/http/router"
	"meeting-minutes-api/internal/workflow/pipeline"
	workflowport "meeting-minutes-api/internal/workflow/port"
	"meeting-minutes-api/pkg/logger"
)

const embeddingCachePrefix = "cache:embedding"

// Storage 按配置选出的议事录存储与相似度检索后端
type Storage struct {
	Repo     repository.MinuteRepository
	Searcher repository.SimilaritySearcher
	// Index 仅 milvus 后端非空
	Index *milvus.MinuteIndex
	// Checker 存储健康检查
	Checker handler.Checker
}

// IndexWorker index-worker 依赖
type IndexWorker struct {
	Consumer *messaging.Consumer
	Index    *milvus.MinuteIndex
}

// BootstrapLayer bootstrap 依赖；未使用的后端为 nil
type BootstrapLayer struct {
	Postgres *postgres.Client
	Index    *milvus.MinuteIndex
}

// ProvideStorage 按 store.backend 与 vector.backend 创建存储与检索
func ProvideStorage(cfg *config.Config, milvusClient *milvus.Client) (*Storage, func(), error) {
	var (
		st       = &Storage{}
		cleanups []func()
	)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var (
		supabaseClient *supabase.Client
		sqliteStore    *sqlite.Store
	)

	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		client, err := postgres.NewClient(&cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = client.Close() })
		repo := postgres.NewMinuteRepository(client, &cfg.Store)
		st.Repo, st.Checker = repo, repo
	case config.StoreBackendSupabase:
		client, err := supabase.NewClient(&cfg.Store.Supabase)
		if err != nil {
			return nil, nil, err
		}
		supabaseClient = client
		st.Repo, st.Checker = supabase.NewMinuteStore(client, &cfg.Store), client
	case config.StoreBackendSQLite:
		store, err := sqlite.Open(&cfg.Database.SQLite)
		if err != nil {
			return nil, nil, err
		}
		sqliteStore = store
		cleanups = append(cleanups, func() { _ = store.Close() })
		st.Repo, st.Checker = store, store
	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %q", cfg.Store.Backend)
	}

	switch cfg.Vector.Backend {
	case config.VectorBackendPgvector:
		searcher, err := postgres.NewVectorSearcher(&cfg.Database.Postgres, &cfg.Vector)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = searcher.Close() })
		st.Searcher = searcher
	case config.VectorBackendSupabase:
		if supabaseClient == nil {
			cleanup()
			return nil, nil, fmt.Errorf("vector backend %q requires store backend %q", cfg.Vector.Backend, config.StoreBackendSupabase)
		}
		st.Searcher = supabase.NewSearcher(supabaseClient, &cfg.Vector)
	case config.VectorBackendSQLite:
		if sqliteStore == nil {
			cleanup()
			return nil, nil, fmt.Errorf("vector backend %q requires store backend %q", cfg.Vector.Backend, config.StoreBackendSQLite)
		}
		st.Searcher = sqlite.NewSearcher(sqliteStore)
	case config.VectorBackendMilvus:
		if milvusClient != nil {
			st.Index = milvus.NewMinuteIndex(milvusClient, cfg.Embedding.Dimension)
			st.Searcher = st.Index
		}
	}

	return st, cleanup, nil
}

// ProvideMilvusClientOptional vector.backend=milvus 时连接；不可达时禁用检索而不阻塞启动
func ProvideMilvusClientOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if cfg.Vector.Backend != config.VectorBackendMilvus {
		return nil, func() {}, nil
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, retrieval disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideMilvusClient 提供 Milvus 客户端（index-worker 必需）
func ProvideMilvusClient(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideRedisClientOptional cache.redis.enabled 时连接；失败时降级为无 Redis
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, rate limiting and index events disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideRedisClient 提供 Redis 客户端（index-worker 必需）
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideRateLimiter 无 Redis 时返回 nil，中间件随之放行
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideEmbedderOptional 不可用时返回 nil，检索与保存时的向量化随之禁用
func ProvideEmbedderOptional(ctx context.Context, cfg *config.Config, redisClient *redis.Client) einoembedding.Embedder {
	embedder, err := infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedding not available, retrieval disabled", "error", err.Error())
		return nil
	}
	if cfg.Embedding.CacheTTL > 0 && redisClient != nil {
		cache := redis.NewCache(redisClient, embeddingCachePrefix)
		return infraembedding.NewCachedEmbedder(embedder, cache, cfg.Embedding.Model, cfg.Embedding.CacheTTL)
	}
	return embedder
}

// ProvideRetrievalEngine 检索引擎；searcher 缺失时 Enabled() 为 false
func ProvideRetrievalEngine(cfg *config.Config, embedder einoembedding.Embedder, st *Storage) *retrieval.Engine {
	return retrieval.NewEngine(embedder, st.Searcher, cfg)
}

// ProvideIndexer milvus + Redis Stream 走异步事件，仅 milvus 时同步写入，其余后端检索直接基于存储
func ProvideIndexer(cfg *config.Config, st *Storage, redisClient *redis.Client) retrieval.Indexer {
	if st.Index == nil {
		return retrieval.NoopIndexer{}
	}
	if cfg.Messaging.RedisStream.Enabled && redisClient != nil {
		return retrieval.NewStreamIndexer(messaging.NewProducer(redisClient.Redis(), cfg.Messaging.RedisStream.MaxLen))
	}
	return retrieval.NewDirectIndexer(st.Index)
}

// ProvideTranscriber 缺少转写配置时返回 nil，音频接口返回服务不可用
func ProvideTranscriber(ctx context.Context, cfg *config.Config) workflowport.AudioTranscriber {
	whisper, err := infratranscription.NewWhisperClient(&cfg.Transcription, cfg.Retry)
	if err != nil {
		logger.Warn(ctx, "transcription not available, audio input disabled", "error", err.Error())
		return nil
	}
	if cfg.Transcription.TempDir != "" {
		if err := os.MkdirAll(cfg.Transcription.TempDir, 0o755); err != nil {
			logger.Warn(ctx, "transcription temp dir not writable", "error", err.Error())
		}
	}
	ffmpeg := audio.NewFFmpeg(cfg.Transcription.FFmpegPath, cfg.Transcription.FFprobePath)
	return transcription.NewOrchestrator(whisper, ffmpeg, ffmpeg, &cfg.Transcription)
}

// ProvideContextRetriever 检索未启用时返回 nil，流水线跳过上下文检索
func ProvideContextRetriever(engine *retrieval.Engine) workflowport.ContextRetriever {
	if !engine.Enabled() {
		return nil
	}
	return engine
}

// ProvidePipeline 议事录流水线
func ProvidePipeline(factory *llm.EinoFactory, transcriber workflowport.AudioTranscriber, retriever workflowport.ContextRetriever, cfg *config.Config) *pipeline.MinutesPipeline {
	return pipeline.NewMinutesPipeline(factory, transcriber, retriever, cfg)
}

// ProvideMinutesService 议事录应用服务
func ProvideMinutesService(p *pipeline.MinutesPipeline, engine *retrieval.Engine, st *Storage, indexer retrieval.Indexer, factory *llm.EinoFactory, cfg *config.Config) *minutes.Service {
	return minutes.NewService(p, engine, st.Repo, indexer, factory, cfg)
}

// ProvideHealthHandler 存储为必需依赖，Redis 与 Milvus 为可选依赖
func ProvideHealthHandler(cfg *config.Config, st *Storage, redisClient *redis.Client, milvusClient *milvus.Client) *handler.HealthHandler {
	required := map[string]handler.Checker{"store": st.Checker}
	optional := map[string]handler.Checker{}
	if redisClient != nil {
		optional["redis"] = redisClient
	} else if cfg.Cache.Redis.Enabled {
		optional["redis"] = nil
	}
	if milvusClient != nil {
		optional["milvus"] = milvusClient
	} else if cfg.Vector.Backend == config.VectorBackendMilvus {
		optional["milvus"] = nil
	}
	return handler.NewHealthHandler(cfg.App.Version, required, optional)
}

// ProvideRouterHandlers 路由处理器集合
func ProvideRouterHandlers(cfg *config.Config, svc *minutes.Service, health *handler.HealthHandler) *router.Handlers {
	return &router.Handlers{
		Minutes: handler.NewMinutesHandler(svc, cfg.Server.HTTP.MaxUploadBytes),
		Health:  health,
	}
}

// ProvideIndexConsumer 订阅议事录变更事件并写入 Milvus
func ProvideIndexConsumer(cfg *config.Config, redisClient *redis.Client, index *milvus.MinuteIndex) *messaging.Consumer {
	stream := cfg.Messaging.RedisStream
	hostname, _ := os.Hostname()
	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		ConsumerName:  fmt.Sprintf("index-worker-%s-%d", hostname, os.Getpid()),
		BlockTimeout:  stream.BlockTimeout,
		ClaimInterval: stream.ClaimInterval,
		RetryLimit:    stream.RetryLimit,
		Backoff:       messaging.BackoffFromConfig(stream.RetryBackoff),
	})
	messaging.RegisterIndexHandlers(consumer, index)
	return consumer
}

// ProvideMinuteIndex 由 Milvus 客户端创建议事录索引
func ProvideMinuteIndex(cfg *config.Config, client *milvus.Client) *milvus.MinuteIndex {
	return milvus.NewMinuteIndex(client, cfg.Embedding.Dimension)
}

// ProvideBootstrapLayer 只连接配置所选的后端
func ProvideBootstrapLayer(ctx context.Context, cfg *config.Config) (*BootstrapLayer, func(), error) {
	layer := &BootstrapLayer{}
	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	if cfg.Store.Backend == config.StoreBackendPostgres {
		client, err := postgres.NewClient(&cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		layer.Postgres = client
		cleanups = append(cleanups, func() { _ = client.Close() })
	}
	if cfg.Vector.Backend == config.VectorBackendMilvus {
		client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		layer.Index = milvus.NewMinuteIndex(client, cfg.Embedding.Dimension)
		cleanups = append(cleanups, func() { _ = client.Close() })
	}
	return layer, cleanup, nil
}

// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigDir 默认配置目录
const DefaultConfigDir = "configs"

var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 从默认配置目录加载配置
// 按优先级加载：默认值 -> config.yaml -> config.<env>.yaml -> 环境变量
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = DefaultConfigDir
	}
	return LoadFrom(dir)
}

// LoadFrom 从指定目录加载配置，config.yaml 不存在时仅使用默认值与环境变量
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := loadConfigFile(v, filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env)), true); err != nil {
		return nil, err
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并合并到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := v.MergeConfig(strings.NewReader(expandEnv(string(content)))); err != nil {
		return fmt.Errorf("failed to merge config %s: %w", path, err)
	}
	return nil
}

// expandEnv 替换字符串中的 ${VAR} / ${VAR:default} 占位符，未定义且无默认值时保留原样
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := envPattern.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendPostgres, StoreBackendSupabase, StoreBackendSQLite:
	default:
		return fmt.Errorf("unsupported store backend: %q", c.Store.Backend)
	}

	switch c.Vector.Backend {
	case VectorBackendPgvector:
		if c.Store.Backend != StoreBackendPostgres {
			return fmt.Errorf("vector backend %q requires store backend %q", c.Vector.Backend, StoreBackendPostgres)
		}
	case VectorBackendSupabase:
		if c.Store.Backend != StoreBackendSupabase {
			return fmt.Errorf("vector backend %q requires store backend %q", c.Vector.Backend, StoreBackendSupabase)
		}
	case VectorBackendSQLite:
		if c.Store.Backend != StoreBackendSQLite {
			return fmt.Errorf("vector backend %q requires store backend %q", c.Vector.Backend, StoreBackendSQLite)
		}
	case VectorBackendMilvus:
	default:
		return fmt.Errorf("unsupported vector backend: %q", c.Vector.Backend)
	}

	for name, p := range c.LLM.Providers {
		switch strings.ToLower(strings.TrimSpace(p.Type)) {
		case "", ProviderTypeOpenAI, ProviderTypeAnthropic, ProviderTypeGemini:
		default:
			return fmt.Errorf("llm provider %q has unsupported type %q", name, p.Type)
		}
	}

	if c.Transcription.MaxFileBytes <= 0 {
		return fmt.Errorf("transcription.max_file_bytes must be positive")
	}
	if c.Pipeline.Condense.ChunkChars <= 0 {
		return fmt.Errorf("pipeline.condense.chunk_chars must be positive")
	}
	if c.Pipeline.Condense.TriggerChars <= 0 {
		return fmt.Errorf("pipeline.condense.trigger_chars must be positive")
	}
	switch c.Pipeline.Synthesis.Schema {
	case "ja", "en":
	default:
		return fmt.Errorf("unsupported synthesis schema: %q", c.Pipeline.Synthesis.Schema)
	}
	if c.Retrieval.MatchCount <= 0 {
		return fmt.Errorf("retrieval.match_count must be positive")
	}
	if c.Concurrency.MaxInFlight <= 0 {
		return fmt.Errorf("concurrency.max_in_flight must be positive")
	}
	if c.Messaging.RedisStream.Enabled && !c.Cache.Redis.Enabled {
		return fmt.Errorf("messaging.redis_stream requires cache.redis.enabled")
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "meeting-minutes-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "60s")
	v.SetDefault("server.http.write_timeout", "600s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "30s")
	v.SetDefault("server.http.max_upload_bytes", 512<<20)

	// 数据库默认值
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "meeting_minutes")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 20)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")
	v.SetDefault("database.sqlite.path", "data/minutes.sqlite")

	// Redis 默认值
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// 存储默认值
	v.SetDefault("store.backend", StoreBackendPostgres)
	v.SetDefault("store.table", "minute_embeddings")
	v.SetDefault("store.supabase.url", "")
	v.SetDefault("store.supabase.service_key", "")
	v.SetDefault("store.supabase.timeout", "30s")

	// 相似度检索默认值
	v.SetDefault("vector.backend", VectorBackendPgvector)
	v.SetDefault("vector.function", "match_minutes")
	v.SetDefault("vector.milvus.host", "localhost")
	v.SetDefault("vector.milvus.port", 19530)
	v.SetDefault("vector.milvus.collection_prefix", "meeting_")
	v.SetDefault("vector.milvus.index_type", "HNSW")
	v.SetDefault("vector.milvus.metric_type", "COSINE")
	v.SetDefault("vector.milvus.hnsw_m", 16)
	v.SetDefault("vector.milvus.hnsw_ef_construction", 200)
	v.SetDefault("vector.milvus.search_ef", 64)

	// LLM 默认值
	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.providers.openai.type", ProviderTypeOpenAI)
	v.SetDefault("llm.providers.openai.api_key", "")
	v.SetDefault("llm.providers.openai.base_url", "")
	v.SetDefault("llm.providers.openai.model", "gpt-4-turbo")
	v.SetDefault("llm.providers.openai.timeout", "120s")

	// Embedding 默认值
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-ada-002")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("embedding.timeout", "30s")
	v.SetDefault("embedding.cache_ttl", "0s")

	// 转写默认值
	v.SetDefault("transcription.model", "whisper-1")
	v.SetDefault("transcription.api_key", "")
	v.SetDefault("transcription.base_url", "")
	v.SetDefault("transcription.language", "")
	v.SetDefault("transcription.temp_dir", "")
	v.SetDefault("transcription.timeout", "300s")
	v.SetDefault("transcription.max_file_bytes", 25<<20)
	v.SetDefault("transcription.segment_duration", "10m")
	v.SetDefault("transcription.ffmpeg_path", "ffmpeg")
	v.SetDefault("transcription.ffprobe_path", "ffprobe")

	// 流水线默认值
	v.SetDefault("pipeline.proofread.temperature", 0.1)
	v.SetDefault("pipeline.proofread.max_tokens", 1500)
	v.SetDefault("pipeline.condense.temperature", 0.2)
	v.SetDefault("pipeline.condense.max_tokens", 1500)
	v.SetDefault("pipeline.condense.trigger_chars", 1000000)
	v.SetDefault("pipeline.condense.chunk_chars", 4000)
	v.SetDefault("pipeline.condense.parallelism", 1)
	v.SetDefault("pipeline.synthesis.temperature", 0.2)
	v.SetDefault("pipeline.synthesis.max_tokens", 2000)
	v.SetDefault("pipeline.synthesis.schema", "ja")
	v.SetDefault("pipeline.synthesis.untitled_title", "untitled")
	v.SetDefault("pipeline.synthesis.extract_json", false)
	v.SetDefault("pipeline.chat.temperature", 0.3)
	v.SetDefault("pipeline.chat.max_tokens", 1000)

	// 检索默认值
	v.SetDefault("retrieval.threshold", 0.2)
	v.SetDefault("retrieval.match_count", 5)

	// 并发默认值
	v.SetDefault("concurrency.max_in_flight", 4)
	v.SetDefault("concurrency.acquire_timeout", "5s")
	v.SetDefault("concurrency.call_timeout", "120s")
	v.SetDefault("concurrency.request_timeout", "15m")

	// 重试默认值（默认关闭）
	v.SetDefault("retry.enabled", false)
	v.SetDefault("retry.initial_interval", "500ms")
	v.SetDefault("retry.max_interval", "10s")
	v.SetDefault("retry.max_elapsed_time", "30s")
	v.SetDefault("retry.max_retries", 3)

	// 消息队列默认值
	v.SetDefault("messaging.redis_stream.enabled", false)
	v.SetDefault("messaging.redis_stream.max_len", 100000)
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "30s")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)
	v.SetDefault("messaging.redis_stream.retry_backoff.initial", "1s")
	v.SetDefault("messaging.redis_stream.retry_backoff.max", "1m")
	v.SetDefault("messaging.redis_stream.retry_backoff.multiplier", 2.0)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.insecure", true)
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", false)
	v.SetDefault("security.rate_limit.requests_per_second", 10)
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})
}

package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"
)

// ByteCache 可合并并发加载的字节缓存（例如 Redis）
type ByteCache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

// CachedEmbedder 按 (模型, 文本) 缓存向量，命中时不调用上游
type CachedEmbedder struct {
	inner embedding.Embedder
	cache ByteCache
	model string
	ttl   time.Duration
}

var _ embedding.Embedder = (*CachedEmbedder)(nil)

func NewCachedEmbedder(inner embedding.Embedder, cache ByteCache, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, model: model, ttl: ttl}
}

func (e *CachedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		raw, err := e.cache.GetOrLoad(ctx, cacheKey(e.model, text), e.ttl, func(ctx context.Context) ([]byte, error) {
			vectors, err := e.inner.EmbedStrings(ctx, []string{text}, opts...)
			if err != nil {
				return nil, err
			}
			if len(vectors) != 1 {
				return nil, fmt.Errorf("embedder returned %d vectors for 1 text", len(vectors))
			}
			return json.Marshal(vectors[0])
		})
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, fmt.Errorf("decode cached embedding: %w", err)
		}
	}
	return out, nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return model + ":" + hex.EncodeToString(sum[:])
}

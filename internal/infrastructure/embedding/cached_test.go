package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	data map[string][]byte
}

func (c *mapCache) GetOrLoad(ctx context.Context, key string, _ time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	c.data[key] = v
	return v, nil
}

type countingEmbedder struct {
	calls int
	err   error
}

func (e *countingEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t)), 0.5}
	}
	return out, nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, &mapCache{data: map[string][]byte{}}, "m", time.Hour)

	first, err := e.EmbedStrings(context.Background(), []string{"abc"})
	require.NoError(t, err)
	second, err := e.EmbedStrings(context.Background(), []string{"abc", "de"})
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{3, 0.5}}, first)
	assert.Equal(t, [][]float64{{3, 0.5}, {2, 0.5}}, second)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_Error(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("quota")}
	e := NewCachedEmbedder(inner, &mapCache{data: map[string][]byte{}}, "m", time.Hour)

	_, err := e.EmbedStrings(context.Background(), []string{"abc"})
	assert.EqualError(t, err, "quota")
}

func TestCacheKey(t *testing.T) {
	assert.NotEqual(t, cacheKey("a", "text"), cacheKey("b", "text"))
	assert.Equal(t, cacheKey("a", "text"), cacheKey("a", "text"))
}

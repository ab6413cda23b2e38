package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-minutes-api/internal/config"
)

func TestNewEinoEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("openai", func(t *testing.T) {
		e, err := NewEinoEmbedder(ctx, &config.EmbeddingConfig{
			Provider: config.ProviderTypeOpenAI,
			APIKey:   "sk-test",
			Model:    "text-embedding-ada-002",
		})
		require.NoError(t, err)
		assert.NotNil(t, e)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewEinoEmbedder(ctx, &config.EmbeddingConfig{Provider: config.ProviderTypeOpenAI})
		assert.Error(t, err)
	})

	t.Run("gemini missing key", func(t *testing.T) {
		_, err := NewEinoEmbedder(ctx, &config.EmbeddingConfig{Provider: config.ProviderTypeGemini})
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewEinoEmbedder(ctx, &config.EmbeddingConfig{Provider: "bogus", APIKey: "k"})
		assert.Error(t, err)
	})
}

package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"meeting-minutes-api/internal/config"
)

// GeminiEmbedder 基于 generative-ai-go 的 Eino Embedder
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder 创建 Gemini Embedder
func NewGeminiEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini embedding api key is required")
	}

	opts := []genaiopt.ClientOption{genaiopt.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, genaiopt.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiEmbedder{client: client, model: cfg.Model}, nil
}

// EmbedStrings 实现 embedding.Embedder
func (e *GeminiEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	options := embedding.GetCommonOptions(&embedding.Options{Model: &e.model}, opts...)
	modelName := e.model
	if options.Model != nil && *options.Model != "" {
		modelName = *options.Model
	}
	cfg := &embedding.Config{Model: modelName}

	ctx = callbacks.EnsureRunInfo(ctx, e.GetType(), components.ComponentOfEmbedding)
	ctx = callbacks.OnStart(ctx, &embedding.CallbackInput{Texts: texts, Config: cfg})

	em := e.client.EmbeddingModel(modelName)
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		rsp, err := em.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			callbacks.OnError(ctx, err)
			return nil, err
		}
		if rsp == nil || rsp.Embedding == nil || len(rsp.Embedding.Values) == 0 {
			err = errors.New("no response from Google")
			callbacks.OnError(ctx, err)
			return nil, err
		}

		vec := make([]float64, len(rsp.Embedding.Values))
		for i, v := range rsp.Embedding.Values {
			vec[i] = float64(v)
		}
		out = append(out, vec)
	}

	callbacks.OnEnd(ctx, &embedding.CallbackOutput{Embeddings: out, Config: cfg})
	return out, nil
}

// GetType 组件类型名
func (e *GeminiEmbedder) GetType() string {
	return "Gemini"
}

// IsCallbacksEnabled 由组件自行触发 callbacks
func (e *GeminiEmbedder) IsCallbacksEnabled() bool {
	return true
}

// Close 释放底层客户端
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}

package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"meeting-minutes-api/internal/config"
)

// GeminiChatModel 基于 generative-ai-go 的 Eino ChatModel 适配器
type GeminiChatModel struct {
	client   *genai.Client
	defaults model.Options
}

// NewGeminiChatModel 创建 Gemini ChatModel
func NewGeminiChatModel(ctx context.Context, cfg config.ProviderConfig) (*GeminiChatModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	opts := []genaiopt.ClientOption{genaiopt.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, genaiopt.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GeminiChatModel{
		client:   client,
		defaults: defaultOptions(cfg.Model, cfg.Temperature, cfg.MaxTokens),
	}, nil
}

// Generate 实现 model.BaseChatModel
func (m *GeminiChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return generate(ctx, m.GetType(), m.defaults, in, opts, m.complete)
}

// Stream 以单帧流返回完整生成结果
func (m *GeminiChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return streamOnce(m.Generate(ctx, in, opts...))
}

// GetType 组件类型名
func (m *GeminiChatModel) GetType() string {
	return "Gemini"
}

// IsCallbacksEnabled 由适配器自行触发 callbacks
func (m *GeminiChatModel) IsCallbacksEnabled() bool {
	return true
}

// Close 释放底层客户端
func (m *GeminiChatModel) Close() error {
	return m.client.Close()
}

func (m *GeminiChatModel) complete(ctx context.Context, system string, turns []*schema.Message, o *model.Options) (*completion, error) {
	if len(turns) == 0 {
		return nil, errors.New("gemini request requires at least one user message")
	}

	gm := m.client.GenerativeModel(*o.Model)
	if o.Temperature != nil {
		gm.SetTemperature(*o.Temperature)
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(*o.MaxTokens))
	}
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := gm.StartChat()
	last := turns[len(turns)-1]
	for _, t := range turns[:len(turns)-1] {
		role := "user"
		if t.Role == schema.Assistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}

	rsp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return nil, err
	}
	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no response from Google")
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	out := &completion{text: b.String()}
	if rsp.UsageMetadata != nil {
		out.promptTokens = int(rsp.UsageMetadata.PromptTokenCount)
		out.completionTokens = int(rsp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

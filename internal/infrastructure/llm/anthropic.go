package llm

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"meeting-minutes-api/internal/config"
)

const anthropicDefaultMaxTokens = 1024

// AnthropicChatModel 基于 anthropic-sdk-go 的 Eino ChatModel 适配器
type AnthropicChatModel struct {
	client   *anthropic.Client
	defaults model.Options
}

// NewAnthropicChatModel 创建 Anthropic ChatModel
func NewAnthropicChatModel(cfg config.ProviderConfig) (*AnthropicChatModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, anthropicopt.WithRequestTimeout(cfg.Timeout))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	return &AnthropicChatModel{
		client:   &client,
		defaults: defaultOptions(cfg.Model, cfg.Temperature, maxTokens),
	}, nil
}

// Generate 实现 model.BaseChatModel
func (m *AnthropicChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return generate(ctx, m.GetType(), m.defaults, in, opts, m.complete)
}

// Stream 以单帧流返回完整生成结果
func (m *AnthropicChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return streamOnce(m.Generate(ctx, in, opts...))
}

// GetType 组件类型名
func (m *AnthropicChatModel) GetType() string {
	return "Anthropic"
}

// IsCallbacksEnabled 由适配器自行触发 callbacks
func (m *AnthropicChatModel) IsCallbacksEnabled() bool {
	return true
}

func (m *AnthropicChatModel) complete(ctx context.Context, system string, turns []*schema.Message, o *model.Options) (*completion, error) {
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(*o.Model),
		MaxTokens: int64(*o.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(turns)),
	}
	if o.Temperature != nil {
		req.Temperature = anthropic.Float(float64(*o.Temperature))
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == schema.Assistant {
			req.Messages = append(req.Messages, anthropic.NewAssistantMessage(block))
			continue
		}
		req.Messages = append(req.Messages, anthropic.NewUserMessage(block))
	}

	rsp, err := m.client.Messages.New(ctx, req)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	if b.Len() == 0 {
		return nil, errors.New("no response from Anthropic")
	}

	return &completion{
		text:             b.String(),
		promptTokens:     int(rsp.Usage.InputTokens),
		completionTokens: int(rsp.Usage.OutputTokens),
	}, nil
}

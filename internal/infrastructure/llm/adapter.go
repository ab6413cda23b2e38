package llm

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// completion 提供商 SDK 的单次调用结果
type completion struct {
	text             string
	promptTokens     int
	completionTokens int
}

// completeFunc 执行一次提供商调用；system 为合并后的系统提示，turns 不含系统消息
type completeFunc func(ctx context.Context, system string, turns []*schema.Message, opts *model.Options) (*completion, error)

// generate 包装提供商调用，统一触发 Eino callbacks
func generate(ctx context.Context, typ string, defaults model.Options, in []*schema.Message, opts []model.Option, call completeFunc) (*schema.Message, error) {
	options := model.GetCommonOptions(&defaults, opts...)
	cfg := callbackConfig(options)

	ctx = callbacks.EnsureRunInfo(ctx, typ, components.ComponentOfChatModel)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{
		Messages: in,
		Config:   cfg,
	})

	system, turns := splitSystem(in)
	res, err := call(ctx, system, turns, options)
	if err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}

	usage := &model.TokenUsage{
		PromptTokens:     res.promptTokens,
		CompletionTokens: res.completionTokens,
		TotalTokens:      res.promptTokens + res.completionTokens,
	}
	out := &schema.Message{
		Role:    schema.Assistant,
		Content: res.text,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				TotalTokens:      usage.TotalTokens,
			},
		},
	}

	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message:    out,
		Config:     cfg,
		TokenUsage: usage,
	})
	return out, nil
}

// streamOnce 将一次完整生成包装为单帧流
func streamOnce(msg *schema.Message, err error) (*schema.StreamReader[*schema.Message], error) {
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func callbackConfig(o *model.Options) *model.Config {
	cfg := &model.Config{}
	if o.Model != nil {
		cfg.Model = *o.Model
	}
	if o.MaxTokens != nil {
		cfg.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		cfg.Temperature = *o.Temperature
	}
	return cfg
}

func splitSystem(in []*schema.Message) (string, []*schema.Message) {
	var sys []string
	turns := make([]*schema.Message, 0, len(in))
	for _, m := range in {
		if m == nil {
			continue
		}
		if m.Role == schema.System {
			sys = append(sys, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(sys, "\n\n"), turns
}

func defaultOptions(modelName string, temperature float64, maxTokens int) model.Options {
	return model.Options{
		Model:       &modelName,
		Temperature: ptrFloat32(float32(temperature)),
		MaxTokens:   ptrInt(maxTokens),
	}
}

package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	llmctx "meeting-minutes-api/internal/domain/service"
	wfmodel "meeting-minutes-api/internal/workflow/model"
	workflowport "meeting-minutes-api/internal/workflow/port"
	apperrors "meeting-minutes-api/pkg/errors"
)

// Generate 执行一次生成调用，失败统一包装为 LLM 上游错误
func Generate(ctx context.Context, factory workflowport.ChatModelFactory, workflow string, params wfmodel.GenerateParams, msgs []*schema.Message) (string, wfmodel.LLMUsageMeta, error) {
	meta := wfmodel.LLMUsageMeta{
		Provider: strings.TrimSpace(params.Provider),
		Model:    strings.TrimSpace(params.Model),
	}
	if factory == nil {
		return "", meta, apperrors.New(apperrors.CodeInternalError, "llm factory not configured")
	}

	ctx = llmctx.WithWorkflowProvider(ctx, workflow, meta.Provider)
	chatModel, err := factory.Get(ctx, meta.Provider)
	if err != nil {
		return "", meta, apperrors.Upstream(err, apperrors.CodeLLMCallFailed, fmt.Sprintf("%s: llm provider unavailable", workflow))
	}

	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	outMsg, err := chatModel.Generate(ctx, msgs, ModelOptions(params)...)
	if err != nil {
		return "", meta, apperrors.Upstream(err, apperrors.CodeLLMCallFailed, fmt.Sprintf("%s: generation failed", workflow))
	}
	if outMsg == nil {
		return "", meta, apperrors.Upstream(errors.New("empty llm response"), apperrors.CodeLLMCallFailed, fmt.Sprintf("%s: generation failed", workflow))
	}

	meta.GeneratedAt = time.Now()
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		meta.PromptTokens = outMsg.ResponseMeta.Usage.PromptTokens
		meta.CompletionTokens = outMsg.ResponseMeta.Usage.CompletionTokens
	}
	return outMsg.Content, meta, nil
}

// ModelOptions 将调用参数转换为 eino 模型选项
func ModelOptions(params wfmodel.GenerateParams) []model.Option {
	opts := make([]model.Option, 0, 3)
	if params.Temperature != nil {
		opts = append(opts, model.WithTemperature(*params.Temperature))
	}
	if params.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*params.MaxTokens))
	}
	if m := strings.TrimSpace(params.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}
	return opts
}

package chain

import (
	"context"
	"strings"

	llmctx "meeting-minutes-api/internal/domain/service"
	wfmodel "meeting-minutes-api/internal/workflow/model"
	wfnode "meeting-minutes-api/internal/workflow/node"
	workflowport "meeting-minutes-api/internal/workflow/port"
	workflowprompt "meeting-minutes-api/internal/workflow/prompt"
	apperrors "meeting-minutes-api/pkg/errors"
)

// ChatChain 基于检索上下文回答提问
type ChatChain struct {
	factory workflowport.ChatModelFactory
}

func NewChatChain(factory workflowport.ChatModelFactory) *ChatChain {
	return &ChatChain{factory: factory}
}

func (c *ChatChain) Invoke(ctx context.Context, in *wfmodel.ChatInput) (*wfmodel.ChatOutput, error) {
	if in == nil || strings.TrimSpace(in.Message) == "" {
		return nil, apperrors.Validation("message is empty")
	}

	tpl, err := workflowprompt.Default.ChatTemplate(workflowprompt.PromptChatV1)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"context": in.Context,
		"message": strings.TrimSpace(in.Message),
	})
	if err != nil {
		return nil, err
	}

	answer, meta, err := wfnode.Generate(ctx, c.factory, llmctx.WorkflowChat, in.GenerateParams, msgs)
	if err != nil {
		return nil, err
	}
	return &wfmodel.ChatOutput{Answer: strings.TrimSpace(answer), Meta: meta}, nil
}

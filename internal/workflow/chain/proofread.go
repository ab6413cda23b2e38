package chain

import (
	"context"
	"errors"
	"strings"

	llmctx "meeting-minutes-api/internal/domain/service"
	wfmodel "meeting-minutes-api/internal/workflow/model"
	wfnode "meeting-minutes-api/internal/workflow/node"
	workflowport "meeting-minutes-api/internal/workflow/port"
	workflowprompt "meeting-minutes-api/internal/workflow/prompt"
	apperrors "meeting-minutes-api/pkg/errors"
)

// ProofreadChain 将原始转写整形为 FormattedTranscript
type ProofreadChain struct {
	factory workflowport.ChatModelFactory
}

func NewProofreadChain(factory workflowport.ChatModelFactory) *ProofreadChain {
	return &ProofreadChain{factory: factory}
}

// Invoke 空输入在调用模型前拒绝；输出去除首尾空白后原样使用
func (c *ProofreadChain) Invoke(ctx context.Context, in *wfmodel.ProofreadInput) (*wfmodel.ProofreadOutput, error) {
	if in == nil || strings.TrimSpace(in.Transcript) == "" {
		return nil, apperrors.Validation("transcript is empty")
	}

	tpl, err := workflowprompt.Default.ChatTemplate(workflowprompt.PromptProofreadV1)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"transcript": in.Transcript,
	})
	if err != nil {
		return nil, err
	}

	text, meta, err := wfnode.Generate(ctx, c.factory, llmctx.WorkflowProofread, in.GenerateParams, msgs)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Upstream(errors.New("empty proofreading response"), apperrors.CodeLLMCallFailed, "proofread: generation failed")
	}
	return &wfmodel.ProofreadOutput{Text: text, Meta: meta}, nil
}

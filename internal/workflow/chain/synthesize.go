package chain

import (
	"context"
	"strings"

	"meeting-minutes-api/internal/domain/entity"
	llmctx "meeting-minutes-api/internal/domain/service"
	wfmodel "meeting-minutes-api/internal/workflow/model"
	wfnode "meeting-minutes-api/internal/workflow/node"
	workflowport "meeting-minutes-api/internal/workflow/port"
	workflowprompt "meeting-minutes-api/internal/workflow/prompt"
	"meeting-minutes-api/pkg/logger"
	"meeting-minutes-api/pkg/metrics"
)

const defaultUntitledTitle = "untitled"

// SynthesizeChain 生成结构化议事录
type SynthesizeChain struct {
	factory workflowport.ChatModelFactory
}

func NewSynthesizeChain(factory workflowport.ChatModelFactory) *SynthesizeChain {
	return &SynthesizeChain{factory: factory}
}

// Invoke 仅在生成调用失败时返回错误；输出不满足 JSON 契约时返回降级文档
func (c *SynthesizeChain) Invoke(ctx context.Context, in *wfmodel.SynthesizeInput) (*wfmodel.SynthesizeOutput, error) {
	if in == nil {
		in = &wfmodel.SynthesizeInput{}
	}
	schema := SchemaByName(in.Schema)

	promptID := workflowprompt.PromptMinutesJaV1
	if schema.Name == SchemaEN.Name {
		promptID = workflowprompt.PromptMinutesEnV1
	}
	tpl, err := workflowprompt.Default.ChatTemplate(promptID)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"context": in.Context,
		"summary": in.Summary,
	})
	if err != nil {
		return nil, err
	}

	raw, meta, err := wfnode.Generate(ctx, c.factory, llmctx.WorkflowSynthesis, in.GenerateParams, msgs)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)

	candidate := raw
	if in.ExtractJSON {
		candidate = wfnode.ExtractJSONObject(raw)
	}

	doc, parseErr := ParseMinutes(candidate, schema)
	if parseErr != nil {
		title := strings.TrimSpace(in.UntitledTitle)
		if title == "" {
			title = defaultUntitledTitle
		}
		doc = entity.NewDegradedDocument(title, raw)
		metrics.DegradedDocumentsTotal.Inc()
		logger.Warn(ctx, "minutes output degraded",
			"schema", schema.Name,
			"reason", parseErr.Error(),
			"raw_chars", wfnode.RuneLen(raw),
		)
	}

	return &wfmodel.SynthesizeOutput{
		Document:   doc,
		Raw:        raw,
		ParseError: parseErr,
		Meta:       meta,
	}, nil
}

package chain

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	llmctx "meeting-minutes-api/internal/domain/service"
	wfmodel "meeting-minutes-api/internal/workflow/model"
	wfnode "meeting-minutes-api/internal/workflow/node"
	workflowport "meeting-minutes-api/internal/workflow/port"
	workflowprompt "meeting-minutes-api/internal/workflow/prompt"
	"meeting-minutes-api/pkg/logger"
)

// CondenseChain 长文压缩：切片摘要后合并
type CondenseChain struct {
	factory workflowport.ChatModelFactory
}

func NewCondenseChain(factory workflowport.ChatModelFactory) *CondenseChain {
	return &CondenseChain{factory: factory}
}

// Invoke 字符数低于触发阈值时原样返回；否则每个切片一次摘要调用，再一次合并调用
func (c *CondenseChain) Invoke(ctx context.Context, in *wfmodel.CondenseInput) (*wfmodel.CondenseOutput, error) {
	if in == nil {
		return &wfmodel.CondenseOutput{}, nil
	}

	length := wfnode.RuneLen(in.Text)
	if in.TriggerChars <= 0 || length < in.TriggerChars {
		return &wfmodel.CondenseOutput{Summary: in.Text}, nil
	}

	chunks := wfnode.SplitByRunes(in.Text, in.ChunkChars)
	logger.Debug(ctx, "condensing long transcript",
		"chars", length,
		"chunks", len(chunks),
		"parallelism", in.Parallelism,
	)

	partials, meta, err := c.summarizeChunks(ctx, in, chunks)
	if err != nil {
		return nil, err
	}

	merged, mergeMeta, err := c.merge(ctx, in.GenerateParams, partials)
	if err != nil {
		return nil, err
	}
	meta.Add(mergeMeta)

	return &wfmodel.CondenseOutput{
		Summary:   strings.TrimSpace(merged),
		Condensed: true,
		Partials:  len(partials),
		Meta:      meta,
	}, nil
}

// summarizeChunks 切片之间不共享上下文，结果按切片顺序返回
func (c *CondenseChain) summarizeChunks(ctx context.Context, in *wfmodel.CondenseInput, chunks []string) ([]string, wfmodel.LLMUsageMeta, error) {
	partials := make([]string, len(chunks))
	metas := make([]wfmodel.LLMUsageMeta, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	limit := in.Parallelism
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, chunk := range chunks {
		g.Go(func() error {
			text, meta, err := c.partial(gctx, in.GenerateParams, i, len(chunks), chunk)
			if err != nil {
				return err
			}
			partials[i] = strings.TrimSpace(text)
			metas[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wfmodel.LLMUsageMeta{}, err
	}

	var total wfmodel.LLMUsageMeta
	for _, m := range metas {
		total.Add(m)
	}
	return partials, total, nil
}

func (c *CondenseChain) partial(ctx context.Context, params wfmodel.GenerateParams, idx, total int, chunk string) (string, wfmodel.LLMUsageMeta, error) {
	tpl, err := workflowprompt.Default.ChatTemplate(workflowprompt.PromptCondensePartialV1)
	if err != nil {
		return "", wfmodel.LLMUsageMeta{}, err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"index": idx + 1,
		"total": total,
		"chunk": chunk,
	})
	if err != nil {
		return "", wfmodel.LLMUsageMeta{}, err
	}
	return wfnode.Generate(ctx, c.factory, llmctx.WorkflowCondensePart, params, msgs)
}

func (c *CondenseChain) merge(ctx context.Context, params wfmodel.GenerateParams, partials []string) (string, wfmodel.LLMUsageMeta, error) {
	tpl, err := workflowprompt.Default.ChatTemplate(workflowprompt.PromptCondenseMergeV1)
	if err != nil {
		return "", wfmodel.LLMUsageMeta{}, err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"partials": strings.Join(partials, "\n\n"),
	})
	if err != nil {
		return "", wfmodel.LLMUsageMeta{}, err
	}
	return wfnode.Generate(ctx, c.factory, llmctx.WorkflowCondenseMerge, params, msgs)
}

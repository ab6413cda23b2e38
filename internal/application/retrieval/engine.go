// Package retrieval 提供相似历史议事录的检索与索引同步
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	"meeting-minutes-api/internal/domain/repository"
	llmctx "meeting-minutes-api/internal/domain/service"
	apperrors "meeting-minutes-api/pkg/errors"
	"meeting-minutes-api/pkg/logger"
	"meeting-minutes-api/pkg/metrics"
	"meeting-minutes-api/pkg/tracer"
)

const contextSeparator = "\n\n"

type Engine struct {
	embedder embedding.Embedder
	searcher repository.SimilaritySearcher
	provider string

	threshold  float64
	matchCount int
}

func NewEngine(embedder embedding.Embedder, searcher repository.SimilaritySearcher, cfg *config.Config) *Engine {
	return &Engine{
		embedder:   embedder,
		searcher:   searcher,
		provider:   cfg.Embedding.Provider,
		threshold:  cfg.Retrieval.Threshold,
		matchCount: cfg.Retrieval.MatchCount,
	}
}

func (e *Engine) Enabled() bool {
	return e != nil && e.embedder != nil && e.searcher != nil
}

// Embed 计算单条文本的向量
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.embedder == nil {
		return nil, apperrors.Wrap(ErrRetrievalDisabled, apperrors.CodeServiceUnavailable, "embedding is not configured")
	}
	q := strings.TrimSpace(text)
	if q == "" {
		return nil, apperrors.Validation("text to embed is empty")
	}

	ctx = llmctx.WithWorkflowProvider(ctx, llmctx.WorkflowEmbedding, e.provider)
	v64, err := e.embedder.EmbedStrings(ctx, []string{q})
	if err != nil {
		return nil, apperrors.Upstream(err, apperrors.CodeEmbeddingFailed, "embedding failed")
	}
	if len(v64) == 0 || len(v64[0]) == 0 {
		return nil, apperrors.Upstream(errors.New("empty embedding result"), apperrors.CodeEmbeddingFailed, "embedding failed")
	}
	vec := v64[0]
	out := make([]float32, 0, len(vec))
	for _, x := range vec {
		out = append(out, float32(x))
	}
	return out, nil
}

// Retrieve 向量化文本并检索相似议事录；后端响应结构无效时返回致命错误
func (e *Engine) Retrieve(ctx context.Context, text string) (*RetrievalResult, error) {
	if !e.Enabled() {
		return nil, apperrors.Wrap(ErrRetrievalDisabled, apperrors.CodeServiceUnavailable, "retrieval is not configured")
	}

	ctx, span := tracer.Start(ctx, "retrieval.search")
	defer span.End()

	vec, err := e.Embed(ctx, text)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	backend := e.searcher.Backend()
	start := time.Now()
	res, err := e.searcher.SearchSimilar(ctx, vec, e.threshold, e.matchCount)
	metrics.VectorSearchDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		tracer.RecordError(span, err)
		return nil, apperrors.Upstream(err, apperrors.CodeVectorSearch, "similarity search failed")
	}
	metrics.RetrievalResultTotal.WithLabelValues(backend, string(res.Kind)).Inc()

	switch res.Kind {
	case entity.SearchResultInvalid:
		err := apperrors.New(apperrors.CodeVectorSearch, "similarity search returned an invalid response").WithDetail(res.Raw)
		tracer.RecordError(span, err)
		return nil, err
	case entity.SearchResultEmpty:
		return &RetrievalResult{Kind: res.Kind}, nil
	case entity.SearchResultRecords, entity.SearchResultStrings:
		out := e.filter(res)
		logger.Debug(ctx, "similar minutes retrieved",
			"backend", backend,
			"kind", string(res.Kind),
			"matches", len(out.Matches),
			"dropped", out.Dropped,
		)
		return out, nil
	default:
		return nil, apperrors.New(apperrors.CodeVectorSearch, fmt.Sprintf("unknown search result kind %q", res.Kind))
	}
}

// RetrieveContext 返回拼接后的检索上下文
func (e *Engine) RetrieveContext(ctx context.Context, text string) (string, error) {
	res, err := e.Retrieve(ctx, text)
	if err != nil {
		return "", err
	}
	return res.Context, nil
}

// filter 丢弃低于阈值的记录（未报告相似度的保留），最多保留 matchCount 条
func (e *Engine) filter(res entity.SearchResult) *RetrievalResult {
	out := &RetrievalResult{Kind: res.Kind}
	parts := make([]string, 0, len(res.Matches))
	for _, m := range res.Matches {
		if m.Similarity != nil && *m.Similarity < e.threshold {
			out.Dropped++
			continue
		}
		if e.matchCount > 0 && len(out.Matches) >= e.matchCount {
			out.Dropped++
			continue
		}
		out.Matches = append(out.Matches, m)
		parts = append(parts, m.Analysis)
	}
	out.Context = strings.Join(parts, contextSeparator)
	return out
}

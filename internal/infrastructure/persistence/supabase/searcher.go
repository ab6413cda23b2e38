package supabase

import (
	"context"
	"fmt"
	"net/http"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
)

// Searcher 调用 /rest/v1/rpc/<function> 做相似度检索
type Searcher struct {
	client   *Client
	function string
}

func NewSearcher(client *Client, cfg *config.VectorConfig) *Searcher {
	return &Searcher{client: client, function: cfg.Function}
}

func (s *Searcher) Backend() string { return config.VectorBackendSupabase }

type matchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchThreshold float64   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
}

// SearchSimilar 成功响应的原始 JSON 交由 DecodeSearchResult 分类
func (s *Searcher) SearchSimilar(ctx context.Context, embedding []float32, threshold float64, count int) (entity.SearchResult, error) {
	resp, err := s.client.do(ctx, http.MethodPost, "rpc/"+s.function, nil, matchRequest{
		QueryEmbedding: embedding,
		MatchThreshold: threshold,
		MatchCount:     count,
	}, "")
	if err != nil {
		return entity.SearchResult{}, err
	}
	if !resp.OK() {
		return entity.SearchResult{}, apperrors.Upstream(
			fmt.Errorf("supabase rpc %s returned status %d", s.function, resp.Status),
			apperrors.CodeVectorSearch,
			"similarity search failed",
		).WithDetail(resp.ErrorBody())
	}
	return entity.DecodeSearchResult(resp.Body), nil
}

package milvus

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"meeting-minutes-api/internal/config"
	domain "meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
)

const defaultSearchEf = 128

// MinuteIndex 议事录向量索引；写入由 Indexer 驱动，检索实现 SimilaritySearcher
type MinuteIndex struct {
	client    *Client
	dimension int
	ensured   atomic.Bool
}

// NewMinuteIndex 创建议事录向量索引，dimension 与嵌入模型输出一致
func NewMinuteIndex(client *Client, dimension int) *MinuteIndex {
	return &MinuteIndex{client: client, dimension: dimension}
}

func (i *MinuteIndex) Backend() string { return config.VectorBackendMilvus }

func (i *MinuteIndex) configured() error {
	if i == nil || i.client == nil || i.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	return nil
}

// EnsureCollection 集合不存在时创建集合与 HNSW 索引，并加载到内存；不做 drop/rebuild
func (i *MinuteIndex) EnsureCollection(ctx context.Context) error {
	if err := i.configured(); err != nil {
		return err
	}
	if i.ensured.Load() {
		return nil
	}

	collName := i.client.CollectionName(CollectionMinutes)
	ctx, span := tracer.Start(ctx, "milvus.EnsureCollection",
		trace.WithAttributes(attribute.String("collection", collName)))
	defer span.End()

	exists, err := i.client.HasCollection(ctx, CollectionMinutes)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		if err := i.client.milvus.CreateCollection(ctx, MinutesSchema(collName, i.dimension), entity.DefaultShardNumber); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create collection: %w", err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, i.client.config.HNSWM, i.client.config.HNSWEfConstruction)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to build index params: %w", err)
		}
		if err := i.client.milvus.CreateIndex(ctx, collName, FieldEmbedding, idx, false); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := i.client.LoadCollection(ctx, CollectionMinutes); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load collection: %w", err)
	}
	i.ensured.Store(true)
	return nil
}

// Upsert 写入（或覆盖）一条议事录向量
func (i *MinuteIndex) Upsert(ctx context.Context, minute *domain.Minute) error {
	if err := i.configured(); err != nil {
		return err
	}
	if len(minute.Embedding) != i.dimension {
		return apperrors.Validation(fmt.Sprintf("embedding dimension %d does not match collection dimension %d",
			len(minute.Embedding), i.dimension))
	}

	collName := i.client.CollectionName(CollectionMinutes)
	ctx, span := tracer.Start(ctx, "milvus.Upsert",
		trace.WithAttributes(
			attribute.String("collection", collName),
			attribute.Int64("minute_id", minute.ID),
		))
	defer span.End()

	_, err := i.client.milvus.Upsert(ctx, collName, "",
		entity.NewColumnInt64(FieldMinuteID, []int64{minute.ID}),
		entity.NewColumnFloatVector(FieldEmbedding, i.dimension, [][]float32{minute.Embedding}),
		entity.NewColumnVarChar(FieldTitle, []string{truncateBytes(minute.Title, maxTitleLength)}),
		entity.NewColumnVarChar(FieldAnalysis, []string{truncateBytes(minute.Analysis, maxAnalysisLength)}),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert minute %d: %w", minute.ID, err)
	}
	return nil
}

// Delete 删除一条议事录向量；不存在时 Milvus 同样返回成功
func (i *MinuteIndex) Delete(ctx context.Context, id int64) error {
	if err := i.configured(); err != nil {
		return err
	}

	collName := i.client.CollectionName(CollectionMinutes)
	ctx, span := tracer.Start(ctx, "milvus.Delete",
		trace.WithAttributes(
			attribute.String("collection", collName),
			attribute.Int64("minute_id", id),
		))
	defer span.End()

	if err := i.client.milvus.Delete(ctx, collName, "", deleteExpr(id)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete minute %d: %w", id, err)
	}
	return nil
}

func deleteExpr(id int64) string {
	return fmt.Sprintf("%s in [%d]", FieldMinuteID, id)
}

// SearchSimilar COSINE 度量下 score 即余弦相似度
func (i *MinuteIndex) SearchSimilar(ctx context.Context, embedding []float32, threshold float64, count int) (domain.SearchResult, error) {
	if err := i.configured(); err != nil {
		return domain.SearchResult{}, err
	}
	if err := i.EnsureCollection(ctx); err != nil {
		return domain.SearchResult{}, apperrors.Upstream(err, apperrors.CodeVectorSearch, "vector index unavailable")
	}

	collName := i.client.CollectionName(CollectionMinutes)
	ctx, span := tracer.Start(ctx, "milvus.SearchSimilar",
		trace.WithAttributes(
			attribute.String("collection", collName),
			attribute.Int("top_k", count),
		))
	defer span.End()

	ef := i.client.config.SearchEf
	if ef < count {
		ef = max(count, defaultSearchEf)
	}
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		span.RecordError(err)
		return domain.SearchResult{}, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := i.client.milvus.Search(ctx,
		collName,
		[]string{},
		"",
		[]string{FieldMinuteID, FieldTitle, FieldAnalysis},
		[]entity.Vector{entity.FloatVector(embedding)},
		FieldEmbedding,
		entity.COSINE,
		count,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return domain.SearchResult{}, apperrors.Upstream(err, apperrors.CodeVectorSearch, "similarity search failed")
	}

	matches := toMatches(results, threshold)
	span.SetAttributes(attribute.Int("result_count", len(matches)))
	return domain.RecordsResult(matches), nil
}

// toMatches 解析检索结果并剔除低于阈值的命中
func toMatches(results []client.SearchResult, threshold float64) []domain.MatchedMinute {
	var matches []domain.MatchedMinute
	for _, result := range results {
		if result.Err != nil {
			continue
		}
		idCol, _ := result.Fields.GetColumn(FieldMinuteID).(*entity.ColumnInt64)
		titleCol, _ := result.Fields.GetColumn(FieldTitle).(*entity.ColumnVarChar)
		analysisCol, _ := result.Fields.GetColumn(FieldAnalysis).(*entity.ColumnVarChar)

		for n := 0; n < result.ResultCount; n++ {
			score := float64(result.Scores[n])
			if score < threshold {
				continue
			}
			m := domain.MatchedMinute{Similarity: &score}
			if idCol != nil {
				m.ID = idCol.Data()[n]
			}
			if titleCol != nil {
				m.Title = titleCol.Data()[n]
			}
			if analysisCol != nil {
				m.Analysis = analysisCol.Data()[n]
			}
			matches = append(matches, m)
		}
	}
	return matches
}

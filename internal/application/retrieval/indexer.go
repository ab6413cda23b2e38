package retrieval

import (
	"context"
	"errors"

	"meeting-minutes-api/internal/domain/entity"
	"meeting-minutes-api/pkg/logger"
)

// Indexer 将保存/删除同步到外部向量索引
type Indexer interface {
	Index(ctx context.Context, minute *entity.Minute) error
	Remove(ctx context.Context, id int64) error
}

// VectorIndex 外部向量索引（例如 Milvus）的最小依赖（port）
type VectorIndex interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, minute *entity.Minute) error
	Delete(ctx context.Context, id int64) error
}

// EventPublisher 议事录变更事件发布（例如 Redis Stream）
type EventPublisher interface {
	PublishMinuteSaved(ctx context.Context, minute *entity.Minute) error
	PublishMinuteDeleted(ctx context.Context, id int64) error
}

// NoopIndexer 检索直接基于存储（pgvector / supabase / sqlite）时使用
type NoopIndexer struct{}

func (NoopIndexer) Index(context.Context, *entity.Minute) error { return nil }
func (NoopIndexer) Remove(context.Context, int64) error         { return nil }

// DirectIndexer 在请求内同步写入向量索引
type DirectIndexer struct {
	index VectorIndex
}

func NewDirectIndexer(index VectorIndex) *DirectIndexer {
	return &DirectIndexer{index: index}
}

func (i *DirectIndexer) Index(ctx context.Context, minute *entity.Minute) error {
	if i == nil || i.index == nil {
		return ErrRetrievalDisabled
	}
	if minute == nil || len(minute.Embedding) == 0 {
		return errors.New("minute embedding is required")
	}
	if err := i.index.EnsureCollection(ctx); err != nil {
		return err
	}
	return i.index.Upsert(ctx, minute)
}

func (i *DirectIndexer) Remove(ctx context.Context, id int64) error {
	if i == nil || i.index == nil {
		return ErrRetrievalDisabled
	}
	if err := i.index.EnsureCollection(ctx); err != nil {
		return err
	}
	return i.index.Delete(ctx, id)
}

// StreamIndexer 发布变更事件，由 index-worker 异步写入索引
type StreamIndexer struct {
	publisher EventPublisher
}

func NewStreamIndexer(publisher EventPublisher) *StreamIndexer {
	return &StreamIndexer{publisher: publisher}
}

func (i *StreamIndexer) Index(ctx context.Context, minute *entity.Minute) error {
	if err := i.publisher.PublishMinuteSaved(ctx, minute); err != nil {
		return err
	}
	logger.Debug(ctx, "minute index event published", "minute_id", minute.ID)
	return nil
}

func (i *StreamIndexer) Remove(ctx context.Context, id int64) error {
	if err := i.publisher.PublishMinuteDeleted(ctx, id); err != nil {
		return err
	}
	logger.Debug(ctx, "minute removal event published", "minute_id", id)
	return nil
}

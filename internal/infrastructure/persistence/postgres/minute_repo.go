package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
)

// minuteRow 议事录表行，embedding 列为 pgvector
type minuteRow struct {
	ID                  int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Title               string          `gorm:"column:title"`
	FormattedTranscript string          `gorm:"column:formatted_transcript"`
	Analysis            string          `gorm:"column:analysis"`
	Improvement         string          `gorm:"column:improvement"`
	MindMap             string          `gorm:"column:mindmap;type:jsonb"`
	Embedding           pgvector.Vector `gorm:"column:embedding;type:vector"`
	CreatedAt           time.Time       `gorm:"column:created_at"`
}

func toRow(m *entity.Minute) (*minuteRow, error) {
	mindmap, err := json.Marshal(m.MindMap.Normalize())
	if err != nil {
		return nil, err
	}
	return &minuteRow{
		Title:               m.Title,
		FormattedTranscript: m.FormattedTranscript,
		Analysis:            m.Analysis,
		Improvement:         m.Improvement,
		MindMap:             string(mindmap),
		Embedding:           pgvector.NewVector(m.Embedding),
		CreatedAt:           m.CreatedAt,
	}, nil
}

func (r *minuteRow) toEntity() (*entity.Minute, error) {
	var mindmap entity.MindMapNode
	if r.MindMap != "" {
		if err := json.Unmarshal([]byte(r.MindMap), &mindmap); err != nil {
			return nil, fmt.Errorf("decode mindmap of minute %d: %w", r.ID, err)
		}
	}
	return &entity.Minute{
		ID:                  r.ID,
		Title:               r.Title,
		FormattedTranscript: r.FormattedTranscript,
		Analysis:            r.Analysis,
		Improvement:         r.Improvement,
		MindMap:             mindmap.Normalize(),
		Embedding:           r.Embedding.Slice(),
		CreatedAt:           r.CreatedAt,
	}, nil
}

// MinuteRepository 议事录仓储实现
type MinuteRepository struct {
	client *Client
	table  string
}

// NewMinuteRepository 创建议事录仓储
func NewMinuteRepository(client *Client, cfg *config.StoreConfig) *MinuteRepository {
	return &MinuteRepository{client: client, table: cfg.Table}
}

func (r *MinuteRepository) Backend() string { return config.StoreBackendPostgres }

func (r *MinuteRepository) db(ctx context.Context) *gorm.DB {
	return r.client.db.WithContext(ctx).Table(r.table)
}

// Create 写入议事录并回填 ID
func (r *MinuteRepository) Create(ctx context.Context, minute *entity.Minute) error {
	ctx, span := tracer.Start(ctx, "postgres.MinuteRepository.Create")
	defer span.End()

	row, err := toRow(minute)
	if err != nil {
		return apperrors.Persistence(err, "failed to encode minute")
	}
	if err := r.db(ctx).Create(row).Error; err != nil {
		span.RecordError(err)
		return apperrors.Persistence(err, "failed to create minute")
	}
	minute.ID = row.ID
	return nil
}

// GetByID 根据 ID 获取议事录
func (r *MinuteRepository) GetByID(ctx context.Context, id int64) (*entity.Minute, error) {
	ctx, span := tracer.Start(ctx, "postgres.MinuteRepository.GetByID")
	defer span.End()

	var row minuteRow
	if err := r.db(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("minute %d not found", id))
		}
		span.RecordError(err)
		return nil, apperrors.Persistence(err, "failed to get minute")
	}
	return row.toEntity()
}

// ListAll 按 ID 降序返回全部议事录
func (r *MinuteRepository) ListAll(ctx context.Context) ([]*entity.Minute, error) {
	ctx, span := tracer.Start(ctx, "postgres.MinuteRepository.ListAll")
	defer span.End()

	var rows []*minuteRow
	if err := r.db(ctx).Order("id DESC").Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.Persistence(err, "failed to list minutes")
	}

	out := make([]*entity.Minute, 0, len(rows))
	for _, row := range rows {
		m, err := row.toEntity()
		if err != nil {
			return nil, apperrors.Persistence(err, "failed to decode minute")
		}
		out = append(out, m)
	}
	return out, nil
}

// DeleteByID 删除议事录；不存在时返回 NotFound
func (r *MinuteRepository) DeleteByID(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.MinuteRepository.DeleteByID")
	defer span.End()

	res := r.db(ctx).Where("id = ?", id).Delete(&minuteRow{})
	if res.Error != nil {
		span.RecordError(res.Error)
		return apperrors.Persistence(res.Error, "failed to delete minute")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(fmt.Sprintf("minute %d not found", id))
	}
	return nil
}

// HealthCheck 存储健康检查
func (r *MinuteRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}

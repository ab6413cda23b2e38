package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
)

const selectColumns = "id,title,formatted_transcript,analysis,improvement,mindmap,created_at"

type minuteRecord struct {
	ID                  int64               `json:"id,omitempty"`
	Title               string              `json:"title"`
	FormattedTranscript string              `json:"formatted_transcript"`
	Analysis            string              `json:"analysis"`
	Improvement         string              `json:"improvement"`
	MindMap             *entity.MindMapNode `json:"mindmap"`
	Embedding           []float32           `json:"embedding,omitempty"`
	CreatedAt           *time.Time          `json:"created_at,omitempty"`
}

func (r *minuteRecord) toEntity() *entity.Minute {
	m := &entity.Minute{
		ID:                  r.ID,
		Title:               r.Title,
		FormattedTranscript: r.FormattedTranscript,
		Analysis:            r.Analysis,
		Improvement:         r.Improvement,
		MindMap:             r.MindMap.Normalize(),
	}
	if r.CreatedAt != nil {
		m.CreatedAt = *r.CreatedAt
	}
	return m
}

// MinuteStore PostgREST 议事录表
type MinuteStore struct {
	client *Client
	table  string
}

func NewMinuteStore(client *Client, cfg *config.StoreConfig) *MinuteStore {
	return &MinuteStore{client: client, table: cfg.Table}
}

func (s *MinuteStore) Backend() string { return config.StoreBackendSupabase }

func statusError(resp *response, op string) error {
	return apperrors.Persistence(fmt.Errorf("supabase %s returned status %d", op, resp.Status), "supabase "+op+" failed").
		WithDetail(resp.ErrorBody())
}

// Create 插入议事录；Prefer: return=representation 以取回存储分配的 ID
func (s *MinuteStore) Create(ctx context.Context, minute *entity.Minute) error {
	rec := minuteRecord{
		Title:               minute.Title,
		FormattedTranscript: minute.FormattedTranscript,
		Analysis:            minute.Analysis,
		Improvement:         minute.Improvement,
		MindMap:             minute.MindMap.Normalize(),
		Embedding:           minute.Embedding,
	}
	resp, err := s.client.do(ctx, http.MethodPost, s.table, nil, rec, returnRecords)
	if err != nil {
		return apperrors.Persistence(err, "supabase insert failed")
	}
	if !resp.OK() {
		return statusError(resp, "insert")
	}

	// 204 无响应体时 ID 未知
	if len(resp.Body) > 0 {
		var created []minuteRecord
		if err := json.Unmarshal(resp.Body, &created); err == nil && len(created) > 0 {
			minute.ID = created[0].ID
		}
	}
	return nil
}

func (s *MinuteStore) GetByID(ctx context.Context, id int64) (*entity.Minute, error) {
	q := url.Values{}
	q.Set("select", selectColumns)
	q.Set("id", "eq."+strconv.FormatInt(id, 10))

	list, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperrors.NotFound(fmt.Sprintf("minute %d not found", id))
	}
	return list[0], nil
}

// ListAll 按 ID 降序
func (s *MinuteStore) ListAll(ctx context.Context) ([]*entity.Minute, error) {
	q := url.Values{}
	q.Set("select", selectColumns)
	q.Set("order", "id.desc")
	return s.query(ctx, q)
}

func (s *MinuteStore) query(ctx context.Context, q url.Values) ([]*entity.Minute, error) {
	resp, err := s.client.do(ctx, http.MethodGet, s.table, q, nil, "")
	if err != nil {
		return nil, apperrors.Persistence(err, "supabase select failed")
	}
	if !resp.OK() {
		return nil, statusError(resp, "select")
	}

	var records []minuteRecord
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, apperrors.Persistence(err, "supabase select returned malformed body").WithDetail(resp.ErrorBody())
	}
	out := make([]*entity.Minute, 0, len(records))
	for i := range records {
		out = append(out, records[i].toEntity())
	}
	return out, nil
}

// DeleteByID 以返回的行数判断 ID 是否存在
func (s *MinuteStore) DeleteByID(ctx context.Context, id int64) error {
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	q.Set("select", "id")

	resp, err := s.client.do(ctx, http.MethodDelete, s.table, q, nil, returnRecords)
	if err != nil {
		return apperrors.Persistence(err, "supabase delete failed")
	}
	if !resp.OK() {
		return statusError(resp, "delete")
	}

	var deleted []minuteRecord
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &deleted); err != nil {
			return apperrors.Persistence(err, "supabase delete returned malformed body").WithDetail(resp.ErrorBody())
		}
	}
	if len(deleted) == 0 {
		return apperrors.NotFound(fmt.Sprintf("minute %d not found", id))
	}
	return nil
}

// HealthCheck 存储健康检查
func (s *MinuteStore) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

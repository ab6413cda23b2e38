// Package minutes 提供议事录生成、保存、检索问答与导出的应用服务
package minutes

import (
	"context"
	"strings"
	"time"

	"meeting-minutes-api/internal/application/retrieval"
	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	"meeting-minutes-api/internal/domain/repository"
	wfchain "meeting-minutes-api/internal/workflow/chain"
	wfmodel "meeting-minutes-api/internal/workflow/model"
	"meeting-minutes-api/internal/workflow/pipeline"
	workflowport "meeting-minutes-api/internal/workflow/port"
	apperrors "meeting-minutes-api/pkg/errors"
	"meeting-minutes-api/pkg/logger"
	"meeting-minutes-api/pkg/metrics"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	// NotFoundCode 删除不存在 ID 时返回的结果码
	NotFoundCode = "NOT_FOUND"
)

// Pipeline 议事录生成流水线
type Pipeline interface {
	RunText(ctx context.Context, text string) (*pipeline.Result, error)
	RunAudio(ctx context.Context, assets []entity.AudioAsset) (*pipeline.Result, error)
}

// Retriever 向量化与相似议事录检索
type Retriever interface {
	Enabled() bool
	Embed(ctx context.Context, text string) ([]float32, error)
	RetrieveContext(ctx context.Context, text string) (string, error)
}

// ProcessResult 生成结果，字段与历史接口保持一致
type ProcessResult struct {
	RunID               string                `json:"run_id"`
	FormattedTranscript string                `json:"formatted_transcript"`
	Title               string                `json:"title"`
	Analysis            string                `json:"analysis"`
	Improvement         string                `json:"improvement"`
	MindMap             *entity.MindMapNode   `json:"mindmap"`
	Degraded            bool                  `json:"degraded"`
	Condensed           bool                  `json:"condensed"`
	Transitions         []pipeline.Transition `json:"transitions,omitempty"`
}

// SaveInput 保存请求
type SaveInput struct {
	FormattedTranscript string
	Title               string
	Analysis            string
	Improvement         string
	MindMap             *entity.MindMapNode
}

// SaveResult 保存结果；存储失败以 Status=error 作为数据返回
type SaveResult struct {
	Status string `json:"status"`
	ID     int64  `json:"id,omitempty"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// DeleteResult 删除结果；ID 不存在时 Code=NOT_FOUND
type DeleteResult struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ChatResult 问答结果
type ChatResult struct {
	Answer  string `json:"answer"`
	Context string `json:"context"`
}

type Service struct {
	pipeline  Pipeline
	retriever Retriever
	repo      repository.MinuteRepository
	indexer   retrieval.Indexer
	chat      *wfchain.ChatChain

	chatParams wfmodel.GenerateParams
}

func NewService(
	p Pipeline,
	retriever Retriever,
	repo repository.MinuteRepository,
	indexer retrieval.Indexer,
	factory workflowport.ChatModelFactory,
	cfg *config.Config,
) *Service {
	if indexer == nil {
		indexer = retrieval.NoopIndexer{}
	}
	return &Service{
		pipeline:   p,
		retriever:  retriever,
		repo:       repo,
		indexer:    indexer,
		chat:       wfchain.NewChatChain(factory),
		chatParams: wfmodel.ParamsFromConfig(cfg.Pipeline.Provider, cfg.Pipeline.Chat, cfg.Concurrency.CallTimeout),
	}
}

// ProcessText 以文本生成议事录
func (s *Service) ProcessText(ctx context.Context, text string) (*ProcessResult, error) {
	res, err := s.pipeline.RunText(ctx, text)
	if err != nil {
		return nil, err
	}
	return toProcessResult(res), nil
}

// ProcessAudio 以音频生成议事录
func (s *Service) ProcessAudio(ctx context.Context, assets []entity.AudioAsset) (*ProcessResult, error) {
	res, err := s.pipeline.RunAudio(ctx, assets)
	if err != nil {
		return nil, err
	}
	return toProcessResult(res), nil
}

func toProcessResult(res *pipeline.Result) *ProcessResult {
	out := &ProcessResult{
		RunID:               res.RunID,
		FormattedTranscript: res.FormattedTranscript,
		Condensed:           res.Condensed,
		Transitions:         res.Transitions,
	}
	if doc := res.Document; doc != nil {
		out.Title = doc.Title
		out.Analysis = doc.Body
		out.Improvement = doc.Improvement
		out.MindMap = doc.MindMap
		out.Degraded = doc.Degraded
	}
	return out
}

// Save 以提交的整形文本重新计算向量后保存
func (s *Service) Save(ctx context.Context, in *SaveInput) (*SaveResult, error) {
	if in == nil || strings.TrimSpace(in.FormattedTranscript) == "" {
		return nil, apperrors.Validation("formatted_transcript is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperrors.Validation("title is required")
	}

	// 向量与保存文本必须来自同一字符串
	vec, err := s.retriever.Embed(ctx, in.FormattedTranscript)
	if err != nil {
		return nil, err
	}

	minute := entity.NewMinute(in.FormattedTranscript, &entity.MinutesDocument{
		Title:       strings.TrimSpace(in.Title),
		Body:        in.Analysis,
		Improvement: in.Improvement,
		MindMap:     in.MindMap,
	}, vec)

	start := time.Now()
	if err := s.repo.Create(ctx, minute); err != nil {
		s.recordStoreOp("create", err)
		logger.Error(ctx, "failed to save minute", err, "backend", s.repo.Backend())
		return failedSave(err), nil
	}
	s.recordStoreOp("create", nil)
	logger.Info(ctx, "minute saved",
		"minute_id", minute.ID,
		"backend", s.repo.Backend(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if err := s.indexer.Index(ctx, minute); err != nil {
		logger.Warn(ctx, "failed to index saved minute", "minute_id", minute.ID, "error", err.Error())
	}
	return &SaveResult{Status: StatusSuccess, ID: minute.ID}, nil
}

func failedSave(err error) *SaveResult {
	appErr := apperrors.AsAppError(err)
	detail := appErr.Detail
	if detail == "" {
		detail = appErr.Error()
	}
	return &SaveResult{Status: StatusError, Code: string(appErr.Code), Detail: detail}
}

// List 按 ID 降序返回全部议事录
func (s *Service) List(ctx context.Context) ([]*entity.Minute, error) {
	list, err := s.repo.ListAll(ctx)
	s.recordStoreOp("list", err)
	if err != nil {
		return nil, apperrors.Persistence(err, "failed to list minutes")
	}
	if list == nil {
		list = []*entity.Minute{}
	}
	return list, nil
}

// Delete 按 ID 删除；不存在或存储失败以结果返回
func (s *Service) Delete(ctx context.Context, id int64) (*DeleteResult, error) {
	if id <= 0 {
		return nil, apperrors.Validation("id must be positive")
	}

	err := s.repo.DeleteByID(ctx, id)
	s.recordStoreOp("delete", err)
	if err != nil {
		appErr := apperrors.AsAppError(err)
		code := string(appErr.Code)
		if apperrors.IsNotFound(err) {
			code = NotFoundCode
		}
		logger.Warn(ctx, "minute delete failed", "minute_id", id, "code", code)
		return &DeleteResult{Status: StatusError, ID: id, Code: code, Detail: appErr.Error()}, nil
	}

	if err := s.indexer.Remove(ctx, id); err != nil {
		logger.Warn(ctx, "failed to remove minute from index", "minute_id", id, "error", err.Error())
	}
	logger.Info(ctx, "minute deleted", "minute_id", id)
	return &DeleteResult{Status: StatusSuccess, ID: id}, nil
}

// Chat 检索相似议事录后回答提问
func (s *Service) Chat(ctx context.Context, message string) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.Validation("message is empty")
	}

	var contextText string
	if s.retriever != nil && s.retriever.Enabled() {
		var err error
		contextText, err = s.retriever.RetrieveContext(ctx, message)
		if err != nil {
			return nil, err
		}
	}

	out, err := s.chat.Invoke(ctx, &wfmodel.ChatInput{
		Message:        message,
		Context:        contextText,
		GenerateParams: s.chatParams,
	})
	if err != nil {
		return nil, err
	}
	return &ChatResult{Answer: out.Answer, Context: contextText}, nil
}

func (s *Service) recordStoreOp(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(s.repo.Backend(), op, status).Inc()
}

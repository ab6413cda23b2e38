package minutes

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"meeting-minutes-api/internal/application/retrieval"
	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	"meeting-minutes-api/internal/workflow/pipeline"
	apperrors "meeting-minutes-api/pkg/errors"
)

// memoryRepo 按插入顺序分配自增 ID
type memoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	items   map[int64]*entity.Minute
	failErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[int64]*entity.Minute{}}
}

func (r *memoryRepo) Create(_ context.Context, m *entity.Minute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.nextID++
	m.ID = r.nextID
	r.items[m.ID] = m
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id int64) (*entity.Minute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFound("minute not found")
	}
	return m, nil
}

func (r *memoryRepo) ListAll(context.Context) ([]*entity.Minute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Minute, 0, len(r.items))
	for _, m := range r.items {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryRepo) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.NotFound("minute not found")
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) Backend() string { return "memory" }

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Enabled() bool { return true }

func (m *MockRetriever) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	vec, _ := args.Get(0).([]float32)
	return vec, args.Error(1)
}

func (m *MockRetriever) RetrieveContext(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) RunText(ctx context.Context, text string) (*pipeline.Result, error) {
	args := m.Called(ctx, text)
	res, _ := args.Get(0).(*pipeline.Result)
	return res, args.Error(1)
}

func (m *MockPipeline) RunAudio(ctx context.Context, assets []entity.AudioAsset) (*pipeline.Result, error) {
	args := m.Called(ctx, assets)
	res, _ := args.Get(0).(*pipeline.Result)
	return res, args.Error(1)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) Index(ctx context.Context, minute *entity.Minute) error {
	return m.Called(ctx, minute).Error(0)
}

func (m *MockIndexer) Remove(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type answerModel struct {
	answer string
	last   []*schema.Message
}

func (m *answerModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.last = in
	return schema.AssistantMessage(m.answer, nil), nil
}

func (m *answerModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, _ := m.Generate(ctx, in, opts...)
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type answerFactory struct{ m *answerModel }

func (f answerFactory) Get(context.Context, string) (model.BaseChatModel, error) { return f.m, nil }

func newTestService(p Pipeline, r Retriever, repo *memoryRepo, idx *MockIndexer, chat *answerModel) *Service {
	cfg := &config.Config{Pipeline: config.PipelineConfig{Chat: config.GenerateConfig{Temperature: 0.2}}}
	if chat == nil {
		chat = &answerModel{}
	}
	var indexer retrieval.Indexer
	if idx != nil {
		indexer = idx
	}
	return NewService(p, r, repo, indexer, answerFactory{chat}, cfg)
}

func TestService_ProcessText(t *testing.T) {
	p := new(MockPipeline)
	p.On("RunText", mock.Anything, "Alice: hi").Return(&pipeline.Result{
		RunID:               "run-1",
		FormattedTranscript: "Alice: こんにちは。",
		Document: &entity.MinutesDocument{
			Title:   "定例",
			Body:    "挨拶のみ",
			MindMap: &entity.MindMapNode{Name: "定例", Children: []*entity.MindMapNode{}},
		},
	}, nil)

	s := newTestService(p, new(MockRetriever), newMemoryRepo(), nil, nil)
	out, err := s.ProcessText(context.Background(), "Alice: hi")
	require.NoError(t, err)

	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, "Alice: こんにちは。", out.FormattedTranscript)
	assert.Equal(t, "定例", out.Title)
	assert.Equal(t, "挨拶のみ", out.Analysis)
	assert.False(t, out.Degraded)
}

func TestService_ProcessAudioPropagatesStageError(t *testing.T) {
	p := new(MockPipeline)
	stageErr := &pipeline.StageError{Stage: pipeline.StateTranscribed, Err: errors.New("413")}
	p.On("RunAudio", mock.Anything, mock.Anything).Return(nil, stageErr)

	s := newTestService(p, new(MockRetriever), newMemoryRepo(), nil, nil)
	_, err := s.ProcessAudio(context.Background(), []entity.AudioAsset{{Name: "a.mp3"}})
	assert.ErrorIs(t, err, stageErr)
}

func TestService_SaveRecomputesEmbedding(t *testing.T) {
	r := new(MockRetriever)
	r.On("Embed", mock.Anything, "Alice: 金曜に出荷").Return([]float32{0.1, 0.2}, nil)
	idx := new(MockIndexer)
	idx.On("Index", mock.Anything, mock.Anything).Return(nil)
	repo := newMemoryRepo()

	s := newTestService(new(MockPipeline), r, repo, idx, nil)
	res, err := s.Save(context.Background(), &SaveInput{
		FormattedTranscript: "Alice: 金曜に出荷",
		Title:               "出荷判断",
		Analysis:            "金曜出荷で合意",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, int64(1), res.ID)
	stored := repo.items[1]
	assert.Equal(t, "Alice: 金曜に出荷", stored.FormattedTranscript)
	assert.Equal(t, []float32{0.1, 0.2}, stored.Embedding)
	assert.NotNil(t, stored.MindMap.Children)
	idx.AssertCalled(t, "Index", mock.Anything, stored)
}

func TestService_SaveStoreFailureIsData(t *testing.T) {
	r := new(MockRetriever)
	r.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	repo := newMemoryRepo()
	repo.failErr = apperrors.Persistence(errors.New("status 409"), "insert failed").WithDetail(`{"message":"duplicate key"}`)

	s := newTestService(new(MockPipeline), r, repo, nil, nil)
	res, err := s.Save(context.Background(), &SaveInput{FormattedTranscript: "t", Title: "x"})
	require.NoError(t, err)

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, string(apperrors.CodePersistence), res.Code)
	assert.Equal(t, `{"message":"duplicate key"}`, res.Detail)
}

func TestService_SaveValidation(t *testing.T) {
	r := new(MockRetriever)
	s := newTestService(new(MockPipeline), r, newMemoryRepo(), nil, nil)

	_, err := s.Save(context.Background(), &SaveInput{Title: "x"})
	assert.True(t, apperrors.IsValidation(err))
	r.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestService_SaveEmbeddingFailure(t *testing.T) {
	r := new(MockRetriever)
	r.On("Embed", mock.Anything, mock.Anything).Return(nil, apperrors.Upstream(errors.New("429"), apperrors.CodeEmbeddingFailed, "embedding failed"))
	repo := newMemoryRepo()

	s := newTestService(new(MockPipeline), r, repo, nil, nil)
	_, err := s.Save(context.Background(), &SaveInput{FormattedTranscript: "t", Title: "x"})
	assert.True(t, apperrors.IsUpstream(err))
	assert.Empty(t, repo.items)
}

func TestService_DeleteThenList(t *testing.T) {
	r := new(MockRetriever)
	r.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	idx := new(MockIndexer)
	idx.On("Index", mock.Anything, mock.Anything).Return(nil)
	idx.On("Remove", mock.Anything, int64(1)).Return(errors.New("milvus down"))
	s := newTestService(new(MockPipeline), r, newMemoryRepo(), idx, nil)

	for _, title := range []string{"first", "second"} {
		_, err := s.Save(context.Background(), &SaveInput{FormattedTranscript: title, Title: title})
		require.NoError(t, err)
	}

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)

	res, err := s.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)

	list, err = s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)

	missing, err := s.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusError, missing.Status)
	assert.Equal(t, NotFoundCode, missing.Code)
}

func TestService_Chat(t *testing.T) {
	r := new(MockRetriever)
	r.On("RetrieveContext", mock.Anything, "前回の結論は？").Return("前回: 予算承認", nil)
	chat := &answerModel{answer: " 予算を承認しました。 "}

	s := newTestService(new(MockPipeline), r, newMemoryRepo(), nil, chat)
	out, err := s.Chat(context.Background(), "前回の結論は？")
	require.NoError(t, err)

	assert.Equal(t, "予算を承認しました。", out.Answer)
	assert.Equal(t, "前回: 予算承認", out.Context)
	assert.Contains(t, chat.last[len(chat.last)-1].Content, "前回: 予算承認")
}

func TestService_ChatRetrievalFailure(t *testing.T) {
	r := new(MockRetriever)
	r.On("RetrieveContext", mock.Anything, mock.Anything).Return("", apperrors.New(apperrors.CodeVectorSearch, "invalid"))
	chat := &answerModel{answer: "x"}

	s := newTestService(new(MockPipeline), r, newMemoryRepo(), nil, chat)
	_, err := s.Chat(context.Background(), "q")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeVectorSearch))
	assert.Nil(t, chat.last)
}

func TestService_Export(t *testing.T) {
	r := new(MockRetriever)
	r.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	s := newTestService(new(MockPipeline), r, newMemoryRepo(), nil, nil)
	_, err := s.Save(context.Background(), &SaveInput{FormattedTranscript: "本文", Title: "週次定例", Analysis: "分析"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Export(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "title", rows[0][1])
	assert.Equal(t, "週次定例", rows[1][1])
	assert.Equal(t, "分析", rows[1][3])
}

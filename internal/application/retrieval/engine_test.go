package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
)

type fakeEmbedder struct {
	vec    []float64
	err    error
	inputs []string
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.inputs = append(f.inputs, texts...)
	if f.err != nil {
		return nil, f.err
	}
	return [][]float64{f.vec}, nil
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) SearchSimilar(ctx context.Context, vec []float32, threshold float64, count int) (entity.SearchResult, error) {
	args := m.Called(ctx, vec, threshold, count)
	return args.Get(0).(entity.SearchResult), args.Error(1)
}

func (m *MockSearcher) Backend() string { return "mock" }

func retrievalConfig() *config.Config {
	return &config.Config{
		Embedding: config.EmbeddingConfig{Provider: "openai"},
		Retrieval: config.RetrievalConfig{Threshold: 0.2, MatchCount: 2},
	}
}

func sim(v float64) *float64 { return &v }

func TestEngine_RetrieveRecords(t *testing.T) {
	emb := &fakeEmbedder{vec: []float64{0.5, 0.25}}
	searcher := new(MockSearcher)
	searcher.On("SearchSimilar", mock.Anything, []float32{0.5, 0.25}, 0.2, 2).Return(entity.SearchResult{
		Kind: entity.SearchResultRecords,
		Matches: []entity.MatchedMinute{
			{ID: 3, Analysis: "前回: 予算保留", Similarity: sim(0.9)},
			{ID: 2, Analysis: "低類似", Similarity: sim(0.1)},
			{ID: 1, Analysis: "前々回: 体制変更"},
			{ID: 0, Analysis: "上限超過", Similarity: sim(0.5)},
		},
	}, nil)

	e := NewEngine(emb, searcher, retrievalConfig())
	res, err := e.Retrieve(context.Background(), " 今回の議事 ")
	require.NoError(t, err)

	assert.Equal(t, []string{"今回の議事"}, emb.inputs)
	assert.Equal(t, "前回: 予算保留\n\n前々回: 体制変更", res.Context)
	assert.Len(t, res.Matches, 2)
	assert.Equal(t, 2, res.Dropped)
	searcher.AssertExpectations(t)
}

func TestEngine_RetrieveStrings(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("SearchSimilar", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entity.DecodeSearchResult([]byte(`["a","b"]`)), nil)

	e := NewEngine(&fakeEmbedder{vec: []float64{1}}, searcher, retrievalConfig())
	ctxText, err := e.RetrieveContext(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", ctxText)
}

func TestEngine_EmptyResultIsNotAnError(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("SearchSimilar", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entity.DecodeSearchResult([]byte(`[]`)), nil)

	e := NewEngine(&fakeEmbedder{vec: []float64{1}}, searcher, retrievalConfig())
	res, err := e.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, entity.SearchResultEmpty, res.Kind)
	assert.Empty(t, res.Context)
}

func TestEngine_InvalidResultIsFatal(t *testing.T) {
	raw := `{"message":"function match_minutes does not exist"}`
	searcher := new(MockSearcher)
	searcher.On("SearchSimilar", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entity.DecodeSearchResult([]byte(raw)), nil)

	e := NewEngine(&fakeEmbedder{vec: []float64{1}}, searcher, retrievalConfig())
	_, err := e.Retrieve(context.Background(), "q")
	require.Error(t, err)

	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeVectorSearch, appErr.Code)
	assert.Equal(t, raw, appErr.Detail)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestEngine_SearchCallFailure(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("SearchSimilar", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entity.SearchResult{}, errors.New("connection refused"))

	e := NewEngine(&fakeEmbedder{vec: []float64{1}}, searcher, retrievalConfig())
	_, err := e.Retrieve(context.Background(), "q")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeVectorSearch))
}

func TestEngine_Embed(t *testing.T) {
	e := NewEngine(&fakeEmbedder{vec: []float64{0.1, 0.2}}, nil, retrievalConfig())

	vec, err := e.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)

	_, err = e.Embed(context.Background(), "  ")
	assert.True(t, apperrors.IsValidation(err))

	failing := NewEngine(&fakeEmbedder{err: errors.New("401")}, nil, retrievalConfig())
	_, err = failing.Embed(context.Background(), "text")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmbeddingFailed))
}

func TestEngine_Disabled(t *testing.T) {
	e := NewEngine(&fakeEmbedder{}, nil, retrievalConfig())
	assert.False(t, e.Enabled())

	_, err := e.Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, ErrRetrievalDisabled)
}

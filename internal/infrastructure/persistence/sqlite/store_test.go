package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(&config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func save(t *testing.T, s *Store, title string, vec []float32) *entity.Minute {
	t.Helper()
	m := entity.NewMinute("transcript "+title, &entity.MinutesDocument{
		Title:   title,
		Body:    "analysis " + title,
		MindMap: &entity.MindMapNode{Name: title, Children: []*entity.MindMapNode{{Name: "child"}}},
	}, vec)
	require.NoError(t, s.Create(context.Background(), m))
	return m
}

func TestStore_CreateGetList(t *testing.T) {
	s := openTestStore(t)

	first := save(t, s, "first", []float32{1, 0})
	second := save(t, s, "second", []float32{0, 1})
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	got, err := s.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, "transcript first", got.FormattedTranscript)
	assert.Equal(t, []float32{1, 0}, got.Embedding)
	require.Len(t, got.MindMap.Children, 1)
	assert.NotNil(t, got.MindMap.Children[0].Children)

	list, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	m := save(t, s, "only", []float32{1})

	require.NoError(t, s.DeleteByID(context.Background(), m.ID))

	list, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	err = s.DeleteByID(context.Background(), m.ID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = s.GetByID(context.Background(), m.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "minutes.db")
	s, err := Open(&config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	save(t, s, "persisted", []float32{1})
	require.NoError(t, s.Close())

	reopened, err := Open(&config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	list, err := reopened.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "persisted", list[0].Title)
}

func TestSearcher_SearchSimilar(t *testing.T) {
	s := openTestStore(t)
	save(t, s, "budget", []float32{1, 0})
	save(t, s, "hiring", []float32{0, 1})
	save(t, s, "budget-2", []float32{0.9, 0.1})
	save(t, s, "other-dim", []float32{1, 0, 0})

	searcher := NewSearcher(s)
	res, err := searcher.SearchSimilar(context.Background(), []float32{1, 0}, 0.2, 5)
	require.NoError(t, err)

	assert.Equal(t, entity.SearchResultRecords, res.Kind)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "analysis budget", res.Matches[0].Analysis)
	assert.Equal(t, "analysis budget-2", res.Matches[1].Analysis)
	assert.InDelta(t, 1.0, *res.Matches[0].Similarity, 1e-9)

	limited, err := searcher.SearchSimilar(context.Background(), []float32{1, 0}, 0.2, 1)
	require.NoError(t, err)
	assert.Len(t, limited.Matches, 1)

	none, err := searcher.SearchSimilar(context.Background(), []float32{-1, 0}, 0.2, 5)
	require.NoError(t, err)
	assert.Equal(t, entity.SearchResultEmpty, none.Kind)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
}

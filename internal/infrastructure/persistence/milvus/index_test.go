package milvus

import (
	"testing"
	"unicode/utf8"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-minutes-api/internal/config"
)

func TestMinutesSchema(t *testing.T) {
	schema := MinutesSchema("mm_minutes", 1536)

	assert.Equal(t, "mm_minutes", schema.CollectionName)
	require.Len(t, schema.Fields, 4)
	assert.Equal(t, FieldMinuteID, schema.Fields[0].Name)
	assert.True(t, schema.Fields[0].PrimaryKey)
	assert.False(t, schema.Fields[0].AutoID)
	assert.Equal(t, "1536", schema.Fields[1].TypeParams["dim"])
}

func TestCollectionName(t *testing.T) {
	c := &Client{config: &config.MilvusConfig{CollectionPrefix: "mm"}}
	assert.Equal(t, "mm_minutes", c.CollectionName(CollectionMinutes))

	c = &Client{config: &config.MilvusConfig{}}
	assert.Equal(t, "minutes", c.CollectionName(CollectionMinutes))
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "abc", truncateBytes("abc", 5))

	s := "議事録議事録"
	out := truncateBytes(s, 7)
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), 7)
	assert.Equal(t, "議事", out)
}

func TestDeleteExpr(t *testing.T) {
	assert.Equal(t, "minute_id in [42]", deleteExpr(42))
}

func TestToMatches(t *testing.T) {
	results := []client.SearchResult{
		{
			ResultCount: 3,
			Scores:      []float32{0.9, 0.5, 0.1},
			Fields: client.ResultSet{
				entity.NewColumnInt64(FieldMinuteID, []int64{7, 3, 1}),
				entity.NewColumnVarChar(FieldTitle, []string{"定例", "週次", "雑談"}),
				entity.NewColumnVarChar(FieldAnalysis, []string{"A", "B", "C"}),
			},
		},
	}

	matches := toMatches(results, 0.2)
	require.Len(t, matches, 2)
	assert.Equal(t, int64(7), matches[0].ID)
	assert.Equal(t, "定例", matches[0].Title)
	assert.Equal(t, "A", matches[0].Analysis)
	assert.InDelta(t, 0.9, *matches[0].Similarity, 1e-6)
	assert.Equal(t, int64(3), matches[1].ID)
}

func TestMinuteIndex_NotConfigured(t *testing.T) {
	var idx *MinuteIndex
	assert.Error(t, idx.EnsureCollection(t.Context()))
	assert.Error(t, NewMinuteIndex(nil, 3).Delete(t.Context(), 1))
}

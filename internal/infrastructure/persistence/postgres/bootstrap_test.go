package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
)

func TestBootstrapStatements(t *testing.T) {
	stmts, err := BootstrapStatements(SchemaOptions{Table: "minutes", Function: "match_minutes", Dimension: 1536})
	require.NoError(t, err)
	require.Len(t, stmts, 4)

	assert.Contains(t, stmts[0], "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, stmts[1], "embedding vector(1536) NOT NULL")
	assert.Contains(t, stmts[2], "USING hnsw (embedding vector_cosine_ops)")
	assert.Contains(t, stmts[3], "FUNCTION match_minutes(")
	assert.Contains(t, stmts[3], ">= match_threshold")
	assert.Contains(t, stmts[3], "LIMIT match_count")
}

func TestBootstrapStatements_RejectsBadInput(t *testing.T) {
	_, err := BootstrapStatements(SchemaOptions{Table: "minutes; drop table x", Function: "match_minutes", Dimension: 3})
	assert.Error(t, err)

	_, err = BootstrapStatements(SchemaOptions{Table: "minutes", Function: "match_minutes"})
	assert.Error(t, err)
}

func TestMinuteRowRoundTrip(t *testing.T) {
	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	in := &entity.Minute{
		Title:               "定例",
		FormattedTranscript: "Alice: はい",
		Analysis:            "分析",
		MindMap:             &entity.MindMapNode{Name: "定例"},
		Embedding:           []float32{0.1, 0.2},
		CreatedAt:           now,
	}

	row, err := toRow(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"定例","children":[]}`, row.MindMap)

	row.ID = 12
	out, err := row.toEntity()
	require.NoError(t, err)
	assert.Equal(t, int64(12), out.ID)
	assert.Equal(t, []float32{0.1, 0.2}, out.Embedding)
	assert.Equal(t, "定例", out.MindMap.Name)
	assert.NotNil(t, out.MindMap.Children)
	assert.Equal(t, now, out.CreatedAt)
}

func TestNewVectorSearcher_RejectsBadFunctionName(t *testing.T) {
	_, err := NewVectorSearcher(&config.PostgresConfig{}, &config.VectorConfig{Function: "match(); drop"})
	assert.Error(t, err)
}

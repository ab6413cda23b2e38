package postgres

import (
	"context"
	"fmt"
	"regexp"

	"meeting-minutes-api/pkg/logger"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SchemaOptions 建表参数
type SchemaOptions struct {
	Table     string
	Function  string
	Dimension int
}

// BootstrapStatements 生成 pgvector 扩展、议事录表、HNSW 索引与 match_minutes 函数的 DDL
func BootstrapStatements(opts SchemaOptions) ([]string, error) {
	if !identPattern.MatchString(opts.Table) || !identPattern.MatchString(opts.Function) {
		return nil, fmt.Errorf("invalid identifier: table=%q function=%q", opts.Table, opts.Function)
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", opts.Dimension)
	}

	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	formatted_transcript TEXT NOT NULL,
	analysis TEXT NOT NULL DEFAULT '',
	improvement TEXT NOT NULL DEFAULT '',
	mindmap JSONB NOT NULL DEFAULT '{}'::jsonb,
	embedding vector(%[2]d) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, opts.Table, opts.Dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_embedding_hnsw ON %[1]s USING hnsw (embedding vector_cosine_ops)`, opts.Table),
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION %[2]s(
	query_embedding vector(%[3]d),
	match_threshold float,
	match_count int
)
RETURNS TABLE (id bigint, title text, analysis text, similarity float)
LANGUAGE sql STABLE
AS $$
	SELECT m.id, m.title, m.analysis, 1 - (m.embedding <=> query_embedding) AS similarity
	FROM %[1]s m
	WHERE 1 - (m.embedding <=> query_embedding) >= match_threshold
	ORDER BY m.embedding <=> query_embedding
	LIMIT match_count
$$`, opts.Table, opts.Function, opts.Dimension),
	}, nil
}

// Bootstrap 执行建表 DDL，可重复执行
func (c *Client) Bootstrap(ctx context.Context, opts SchemaOptions) error {
	stmts, err := BootstrapStatements(opts)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := c.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("bootstrap statement failed: %w", err)
		}
	}
	logger.Info(ctx, "postgres schema ready", "table", opts.Table, "function", opts.Function)
	return nil
}

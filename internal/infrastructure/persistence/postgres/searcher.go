package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
)

var (
	driverOnce sync.Once
	driverName string
	driverErr  error
)

// instrumentedDriver 注册一次 otelsql 包装的 lib/pq 驱动
func instrumentedDriver() (string, error) {
	driverOnce.Do(func() {
		driverName, driverErr = otelsql.Register(
			"postgres",
			otelsql.TraceQueryWithoutArgs(),
			otelsql.TraceRowsClose(),
			otelsql.TraceRowsAffected(),
			otelsql.WithSystem(semconv.DBSystemPostgreSQL),
		)
	})
	return driverName, driverErr
}

// VectorSearcher 通过 match_minutes SQL 函数做 pgvector 相似度检索
type VectorSearcher struct {
	conn     *sql.DB
	function string
}

// NewVectorSearcher 使用 otelsql 包装的 lib/pq 驱动建立独立连接
func NewVectorSearcher(pg *config.PostgresConfig, vector *config.VectorConfig) (*VectorSearcher, error) {
	if !identPattern.MatchString(vector.Function) {
		return nil, fmt.Errorf("invalid search function name %q", vector.Function)
	}

	driver, err := instrumentedDriver()
	if err != nil {
		return nil, fmt.Errorf("failed to register instrumented postgres driver: %w", err)
	}

	conn, err := sql.Open(driver, pg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres search connection: %w", err)
	}
	conn.SetMaxOpenConns(pg.MaxOpenConns)
	conn.SetMaxIdleConns(pg.MaxIdleConns)

	if err := otelsql.RecordStats(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to record postgres search stats: %w", err)
	}
	return &VectorSearcher{conn: conn, function: vector.Function}, nil
}

func (s *VectorSearcher) Backend() string { return config.VectorBackendPgvector }

// SearchSimilar 调用 match_minutes(query_embedding, match_threshold, match_count)
func (s *VectorSearcher) SearchSimilar(ctx context.Context, embedding []float32, threshold float64, count int) (entity.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "postgres.VectorSearcher.SearchSimilar")
	defer span.End()

	query := fmt.Sprintf(`SELECT id, title, analysis, similarity FROM %s($1, $2, $3)`, s.function)
	rows, err := s.conn.QueryContext(ctx, query, pgvector.NewVector(embedding), threshold, count)
	if err != nil {
		span.RecordError(err)
		return entity.SearchResult{}, err
	}
	defer rows.Close()

	var matches []entity.MatchedMinute
	for rows.Next() {
		var (
			m          entity.MatchedMinute
			analysis   sql.NullString
			similarity float64
		)
		if err := rows.Scan(&m.ID, &m.Title, &analysis, &similarity); err != nil {
			return entity.SearchResult{}, err
		}
		m.Analysis = analysis.String
		m.Similarity = &similarity
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return entity.SearchResult{}, err
	}
	return entity.RecordsResult(matches), nil
}

// Close 关闭检索连接
func (s *VectorSearcher) Close() error {
	return s.conn.Close()
}

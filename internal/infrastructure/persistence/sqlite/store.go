// Package sqlite 提供内嵌 SQLite 的议事录存储，适合单机与 CLI 场景
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS minutes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	formatted_transcript TEXT NOT NULL,
	analysis TEXT NOT NULL DEFAULT '',
	improvement TEXT NOT NULL DEFAULT '',
	mindmap TEXT NOT NULL DEFAULT '{}',
	embedding TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);`

// Store SQLite 议事录存储；向量以 JSON 数组文本保存
type Store struct {
	db *sql.DB
}

// Open 打开（必要时创建）数据库文件并建表
func Open(cfg *config.SQLiteConfig) (*Store, error) {
	path := cfg.Path
	dsn := ":memory:"
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// 单连接：内存库在多连接间不共享，文件库也只有一个写者
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Backend() string { return config.StoreBackendSQLite }

func (s *Store) Create(ctx context.Context, minute *entity.Minute) error {
	mindmap, err := json.Marshal(minute.MindMap.Normalize())
	if err != nil {
		return apperrors.Persistence(err, "failed to encode mindmap")
	}
	embedding, err := json.Marshal(minute.Embedding)
	if err != nil {
		return apperrors.Persistence(err, "failed to encode embedding")
	}
	createdAt := minute.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO minutes (title, formatted_transcript, analysis, improvement, mindmap, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, minute.Title, minute.FormattedTranscript, minute.Analysis, minute.Improvement,
		string(mindmap), string(embedding), createdAt.UnixMilli())
	if err != nil {
		return apperrors.Persistence(err, "failed to insert minute")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Persistence(err, "failed to read inserted id")
	}
	minute.ID = id
	minute.CreatedAt = createdAt
	return nil
}

const selectMinute = `SELECT id, title, formatted_transcript, analysis, improvement, mindmap, embedding, created_at FROM minutes`

type scanner interface {
	Scan(dest ...any) error
}

func scanMinute(row scanner) (*entity.Minute, error) {
	var (
		m         entity.Minute
		mindmap   string
		embedding string
		createdAt int64
	)
	if err := row.Scan(&m.ID, &m.Title, &m.FormattedTranscript, &m.Analysis, &m.Improvement, &mindmap, &embedding, &createdAt); err != nil {
		return nil, err
	}
	var node entity.MindMapNode
	if err := json.Unmarshal([]byte(mindmap), &node); err != nil {
		return nil, fmt.Errorf("decode mindmap of minute %d: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(embedding), &m.Embedding); err != nil {
		return nil, fmt.Errorf("decode embedding of minute %d: %w", m.ID, err)
	}
	m.MindMap = node.Normalize()
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &m, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*entity.Minute, error) {
	m, err := scanMinute(s.db.QueryRowContext(ctx, selectMinute+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound(fmt.Sprintf("minute %d not found", id))
	}
	if err != nil {
		return nil, apperrors.Persistence(err, "failed to get minute")
	}
	return m, nil
}

// ListAll 按 ID 降序
func (s *Store) ListAll(ctx context.Context) ([]*entity.Minute, error) {
	rows, err := s.db.QueryContext(ctx, selectMinute+` ORDER BY id DESC`)
	if err != nil {
		return nil, apperrors.Persistence(err, "failed to list minutes")
	}
	defer rows.Close()

	var out []*entity.Minute
	for rows.Next() {
		m, err := scanMinute(rows)
		if err != nil {
			return nil, apperrors.Persistence(err, "failed to scan minute")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence(err, "failed to list minutes")
	}
	return out, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM minutes WHERE id = ?`, id)
	if err != nil {
		return apperrors.Persistence(err, "failed to delete minute")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Persistence(err, "failed to delete minute")
	}
	if n == 0 {
		return apperrors.NotFound(fmt.Sprintf("minute %d not found", id))
	}
	return nil
}

// HealthCheck 存储健康检查
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

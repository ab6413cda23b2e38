// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"meeting-minutes-api/internal/domain/entity"
)

// MinuteRepository 议事录存储
//
// 实现需保证 ListAll 按 ID 降序返回；DeleteByID 对不存在的 ID 返回 NotFound 错误。
type MinuteRepository interface {
	// Create 写入议事录并回填存储分配的 ID
	Create(ctx context.Context, minute *entity.Minute) error
	GetByID(ctx context.Context, id int64) (*entity.Minute, error)
	ListAll(ctx context.Context) ([]*entity.Minute, error)
	DeleteByID(ctx context.Context, id int64) error
	// Backend 存储后端名称，用于日志与指标
	Backend() string
}

// HealthChecker 存储健康检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SimilaritySearcher 按向量检索相似的历史议事录
type SimilaritySearcher interface {
	// SearchSimilar 返回按相似度降序排列的结果；无法解析的后端响应以 Invalid 形态返回而非错误
	SearchSimilar(ctx context.Context, embedding []float32, threshold float64, count int) (entity.SearchResult, error)
	Backend() string
}

package retrieval

import "meeting-minutes-api/internal/domain/entity"

// RetrievalResult 一次相似议事录检索的结果
type RetrievalResult struct {
	Kind entity.SearchResultKind
	// Context 命中记录的 analysis 依次以空行拼接，可能为空
	Context string
	Matches []entity.MatchedMinute
	// Dropped 因相似度低于阈值或超出条数上限被丢弃的记录数
	Dropped int
}

package retrieval

import "errors"

var (
	// ErrRetrievalDisabled 表示未配置 Embedder 或相似度检索后端
	ErrRetrievalDisabled = errors.New("retrieval is disabled")
)

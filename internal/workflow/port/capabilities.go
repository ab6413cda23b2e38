package port

import (
	"context"

	"meeting-minutes-api/internal/domain/entity"
)

// AudioTranscriber 将一个或多个音频转写为一份按时间排序的文本
type AudioTranscriber interface {
	Transcribe(ctx context.Context, assets []entity.AudioAsset) (string, error)
}

// ContextRetriever 为文本检索相似历史议事录并拼接为上下文
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, text string) (string, error)
}

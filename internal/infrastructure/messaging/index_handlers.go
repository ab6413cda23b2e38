package messaging

import (
	"context"
	"fmt"

	"meeting-minutes-api/internal/application/retrieval"
	"meeting-minutes-api/internal/domain/entity"
	"meeting-minutes-api/pkg/logger"
)

// IndexHandlers 将保存/删除事件同步到向量索引
func IndexHandlers(index retrieval.VectorIndex) map[string]MessageHandler {
	return map[string]MessageHandler{
		TypeMinuteSaved: func(ctx context.Context, msg *Message) error {
			var payload MinuteSavedMessage
			if err := msg.UnmarshalPayload(&payload); err != nil {
				return fmt.Errorf("decode %s payload: %w", msg.Type, err)
			}
			if payload.MinuteID <= 0 || len(payload.Embedding) == 0 {
				logger.Warn(ctx, "skipping saved event without id or embedding", "message_id", msg.ID)
				return nil
			}
			if err := index.EnsureCollection(ctx); err != nil {
				return err
			}
			return index.Upsert(ctx, &entity.Minute{
				ID:        payload.MinuteID,
				Title:     payload.Title,
				Analysis:  payload.Analysis,
				Embedding: payload.Embedding,
			})
		},
		TypeMinuteDeleted: func(ctx context.Context, msg *Message) error {
			var payload MinuteDeletedMessage
			if err := msg.UnmarshalPayload(&payload); err != nil {
				return fmt.Errorf("decode %s payload: %w", msg.Type, err)
			}
			if err := index.EnsureCollection(ctx); err != nil {
				return err
			}
			return index.Delete(ctx, payload.MinuteID)
		},
	}
}

// RegisterIndexHandlers 注册索引同步处理器
func RegisterIndexHandlers(c *Consumer, index retrieval.VectorIndex) {
	for msgType, h := range IndexHandlers(index) {
		c.RegisterHandler(msgType, h)
	}
}

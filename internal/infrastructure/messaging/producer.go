package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"meeting-minutes-api/internal/application/retrieval"
	"meeting-minutes-api/internal/domain/entity"
	"meeting-minutes-api/pkg/logger"
	"meeting-minutes-api/pkg/tracer"
)

var otelTracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	stream Stream
	maxLen int64
}

var _ retrieval.EventPublisher = (*Producer)(nil)

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		stream: StreamMinutesIndex,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := otelTracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishMinuteSaved 发布议事录保存事件
func (p *Producer) PublishMinuteSaved(ctx context.Context, minute *entity.Minute) error {
	msg, err := NewMessage(uuid.NewString(), TypeMinuteSaved, &MinuteSavedMessage{
		MinuteID:  minute.ID,
		Title:     minute.Title,
		Analysis:  minute.Analysis,
		Embedding: minute.Embedding,
	})
	if err != nil {
		return err
	}
	return p.publish(ctx, msg, minute.ID)
}

// PublishMinuteDeleted 发布议事录删除事件
func (p *Producer) PublishMinuteDeleted(ctx context.Context, id int64) error {
	msg, err := NewMessage(uuid.NewString(), TypeMinuteDeleted, &MinuteDeletedMessage{MinuteID: id})
	if err != nil {
		return err
	}
	return p.publish(ctx, msg, id)
}

func (p *Producer) publish(ctx context.Context, msg *Message, minuteID int64) error {
	msg.SetMetadata("minute_id", strconv.FormatInt(minuteID, 10))
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}
	if traceID := tracer.TraceID(ctx); traceID != "" {
		msg.SetMetadata("trace_id", traceID)
	}
	_, err := p.Publish(ctx, p.stream, msg)
	return err
}

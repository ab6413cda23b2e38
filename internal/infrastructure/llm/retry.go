package llm

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"meeting-minutes-api/internal/domain/service"
	"meeting-minutes-api/internal/infrastructure/resilience"
)

// RetryingChatModel 按重试策略包装 ChatModel
type RetryingChatModel struct {
	inner  model.BaseChatModel
	policy resilience.Policy
}

// NewRetryingChatModel 创建带重试的 ChatModel
func NewRetryingChatModel(inner model.BaseChatModel, policy resilience.Policy) *RetryingChatModel {
	return &RetryingChatModel{inner: inner, policy: policy}
}

// Generate 实现 model.BaseChatModel
func (m *RetryingChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var out *schema.Message
	err := resilience.Do(ctx, m.policy, "llm."+service.WorkflowFromContext(ctx), func(ctx context.Context) error {
		msg, err := m.inner.Generate(ctx, in, opts...)
		if err != nil {
			return err
		}
		out = msg
		return nil
	})
	return out, err
}

// Stream 流式调用不重试
func (m *RetryingChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.inner.Stream(ctx, in, opts...)
}

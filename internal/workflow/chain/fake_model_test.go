package chain

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// responder 根据输入消息返回模型输出
type responder func(msgs []*schema.Message) (string, error)

type scriptedModel struct {
	mu      sync.Mutex
	respond responder
	calls   [][]*schema.Message
	options []*model.Options
}

func newScriptedModel(r responder) *scriptedModel {
	return &scriptedModel{respond: r}
}

func replyWith(text string) responder {
	return func([]*schema.Message) (string, error) { return text, nil }
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls = append(m.calls, in)
	m.options = append(m.options, model.GetCommonOptions(&model.Options{}, opts...))
	m.mu.Unlock()

	text, err := m.respond(in)
	if err != nil {
		return nil, err
	}
	msg := schema.AssistantMessage(text, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}
	return msg, nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *scriptedModel) userPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.calls))
	for _, msgs := range m.calls {
		out = append(out, msgs[len(msgs)-1].Content)
	}
	return out
}

type fakeFactory struct {
	model model.BaseChatModel
	err   error
}

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.model == nil {
		return nil, errors.New("no model")
	}
	return f.model, nil
}

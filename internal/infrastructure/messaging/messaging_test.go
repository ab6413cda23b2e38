package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
)

type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) EnsureCollection(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockVectorIndex) Upsert(ctx context.Context, minute *entity.Minute) error {
	return m.Called(ctx, minute).Error(0)
}

func (m *MockVectorIndex) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func TestCalculateBackoff(t *testing.T) {
	b := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, b.CalculateBackoff(0))
	assert.Equal(t, 4*time.Second, b.CalculateBackoff(2))
	assert.Equal(t, 5*time.Second, b.CalculateBackoff(10))
}

func TestBackoffFromConfig(t *testing.T) {
	b := BackoffFromConfig(config.BackoffConfig{Initial: 2 * time.Second})
	assert.Equal(t, 2*time.Second, b.Initial)
	assert.Equal(t, time.Minute, b.Max)
	assert.Equal(t, 2.0, b.Multiplier)
}

func TestStreamNames(t *testing.T) {
	assert.Equal(t, "dlq:stream:minutes:index", StreamMinutesIndex.DLQStream())
}

func TestDecode(t *testing.T) {
	msg, err := NewMessage("m-1", TypeMinuteDeleted, &MinuteDeletedMessage{MinuteID: 7})
	require.NoError(t, err)
	msg.SetMetadata("minute_id", "7")

	raw, err := msg.Payload.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"minute_id":7}`, string(raw))

	_, err = decode(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": 42}})
	assert.Error(t, err)
	_, err = decode(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": "{"}})
	assert.Error(t, err)
}

func TestIndexHandlers_Saved(t *testing.T) {
	index := new(MockVectorIndex)
	index.On("EnsureCollection", mock.Anything).Return(nil)
	index.On("Upsert", mock.Anything, mock.MatchedBy(func(m *entity.Minute) bool {
		return m.ID == 3 && m.Title == "定例" && len(m.Embedding) == 2
	})).Return(nil)

	msg, err := NewMessage("m-1", TypeMinuteSaved, &MinuteSavedMessage{
		MinuteID: 3, Title: "定例", Analysis: "分析", Embedding: []float32{0.1, 0.2},
	})
	require.NoError(t, err)

	handlers := IndexHandlers(index)
	require.NoError(t, handlers[TypeMinuteSaved](context.Background(), msg))
	index.AssertExpectations(t)
}

func TestIndexHandlers_SavedWithoutEmbeddingIsSkipped(t *testing.T) {
	index := new(MockVectorIndex)
	msg, err := NewMessage("m-1", TypeMinuteSaved, &MinuteSavedMessage{MinuteID: 3})
	require.NoError(t, err)

	require.NoError(t, IndexHandlers(index)[TypeMinuteSaved](context.Background(), msg))
	index.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestIndexHandlers_Deleted(t *testing.T) {
	index := new(MockVectorIndex)
	index.On("EnsureCollection", mock.Anything).Return(nil)
	index.On("Delete", mock.Anything, int64(9)).Return(errors.New("milvus down"))

	msg, err := NewMessage("m-2", TypeMinuteDeleted, &MinuteDeletedMessage{MinuteID: 9})
	require.NoError(t, err)

	err = IndexHandlers(index)[TypeMinuteDeleted](context.Background(), msg)
	assert.EqualError(t, err, "milvus down")
}

func TestNewConsumerDefaults(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{ConsumerName: "w1"})
	assert.Equal(t, StreamMinutesIndex, c.stream)
	assert.Equal(t, ConsumerGroupIndexWorker, c.group)
	assert.Equal(t, 3, c.retryLimit)
	assert.Equal(t, 5*time.Minute, c.reclaimIdle)

	RegisterIndexHandlers(c, new(MockVectorIndex))
	assert.Len(t, c.handlers, 2)
}

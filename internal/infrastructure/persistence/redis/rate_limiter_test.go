package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 400*time.Millisecond, retryAfter(1_000, 1_600, time.Second))
	assert.Equal(t, time.Millisecond, retryAfter(1_000, 2_500, time.Second))
}

func TestBuildRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:10.0.0.1:/api/v1/minutes", BuildRateLimitKey("10.0.0.1", "/api/v1/minutes"))
}

func TestIsNil(t *testing.T) {
	assert.True(t, IsNil(redis.Nil))
	assert.False(t, IsNil(errors.New("boom")))
	assert.False(t, IsNil(nil))
}

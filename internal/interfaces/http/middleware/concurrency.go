package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"meeting-minutes-api/internal/interfaces/http/dto"
	apperrors "meeting-minutes-api/pkg/errors"
	"meeting-minutes-api/pkg/metrics"
)

// ConcurrencyLimit 限制同时执行的流水线请求数；超过等待时间直接返回 503
func ConcurrencyLimit(maxInFlight int64, acquireTimeout time.Duration) gin.HandlerFunc {
	if maxInFlight <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	sem := semaphore.NewWeighted(maxInFlight)

	return func(c *gin.Context) {
		if !acquire(c.Request.Context(), sem, acquireTimeout) {
			metrics.HTTPRejectedTotal.WithLabelValues("busy").Inc()
			c.Header("Retry-After", "1")
			dto.AbortWithError(c, http.StatusServiceUnavailable, apperrors.CodeServerBusy, "server busy, try again later")
			return
		}
		metrics.HTTPInFlight.Inc()
		defer func() {
			metrics.HTTPInFlight.Dec()
			sem.Release(1)
		}()

		c.Next()
	}
}

func acquire(ctx context.Context, sem *semaphore.Weighted, timeout time.Duration) bool {
	if timeout <= 0 {
		return sem.TryAcquire(1)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sem.Acquire(ctx, 1) == nil
}

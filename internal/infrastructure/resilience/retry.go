// Package resilience 提供外部调用的重试策略
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"meeting-minutes-api/internal/config"
	apperrors "meeting-minutes-api/pkg/errors"
	"meeting-minutes-api/pkg/logger"
)

// Policy 重试策略，Enabled=false 时只执行一次
type Policy struct {
	Enabled         bool
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      int
}

// NewPolicy 由配置构造重试策略
func NewPolicy(cfg config.RetryConfig) Policy {
	return Policy{
		Enabled:         cfg.Enabled,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		MaxElapsedTime:  cfg.MaxElapsedTime,
		MaxRetries:      cfg.MaxRetries,
	}
}

// NoRetry 单次执行策略
func NoRetry() Policy {
	return Policy{}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = p.MaxElapsedTime

	var bo backoff.BackOff = b
	if p.MaxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(p.MaxRetries))
	}
	return backoff.WithContext(bo, ctx)
}

// Do 按策略执行 op；校验类错误和 context 取消不重试
func Do(ctx context.Context, p Policy, name string, op func(ctx context.Context) error) error {
	if !p.Enabled {
		return op(ctx)
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn(ctx, "retrying upstream call",
			"call", name,
			"attempt", attempt,
			"wait", wait.String(),
			"error", err.Error(),
		)
	}

	return backoff.RetryNotify(operation, p.backOff(ctx), notify)
}

// Retryable 判断错误是否值得重试
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if apperrors.IsValidation(err) || apperrors.IsNotFound(err) {
		return false
	}
	return true
}

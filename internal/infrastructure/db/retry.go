package db

import (
	"context"
	"time"

	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryPolicy bounds how long startup waits for a storage backend.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 2 * time.Second}
}

// InitWithRetry runs op until it succeeds or the policy is used up and
// returns the last error. Each failure is logged with its attempt number.
func InitWithRetry[T any](ctx context.Context, name string, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		return op(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.Backoff)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("storage init failed, retrying",
				zap.String("backend", name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Duration("next_retry", next),
				zap.Error(err),
			)
		}),
	)
}

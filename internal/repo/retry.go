package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrOperationTimeout = errors.New("operation timeout exceeded")

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
)

// retrier is embedded by every Mongo repository
type retrier struct {
	logger *zap.Logger
}

// withRetry runs fn until it succeeds, fails with a non-retryable error or
// runs out of attempts. Only idempotent operations go through here.
func (r retrier) withRetry(ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := ensureTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return r.classify(op, err)
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		// Don't retry on context cancellation or non-retryable errors
		if !isRetryableError(lastErr) {
			break
		}

		r.logger.Warn("mongo operation failed, retrying",
			zap.String("op", op),
			zap.Error(lastErr),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	return r.classify(op, lastErr)
}

// classify maps a driver error onto the apperr taxonomy.
func (r retrier) classify(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		r.logger.Error("mongo operation timed out", zap.String("op", op))
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrPersistence, ErrOperationTimeout)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrPersistence, err)
	default:
		r.logger.Error("mongo operation failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrPersistence, err)
	}
}

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}

package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/scrapeline/scrapeline/internal/errors"
)

// Retrier wraps an attempt function with a bounded retry loop and exponential
// backoff. Only transport failures are retried; HTTP status errors, decode
// errors and context cancellation stop the loop immediately.
type Retrier struct {
	// BaseDelay is the backoff unit; the wait before retry i+1 is
	// BaseDelay << i. Defaults to one second.
	BaseDelay time.Duration
	Logger    *zap.Logger
	// Sleep suspends between attempts. Injectable for tests; defaults to a
	// context-aware timer so cancellation short-circuits the backoff wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn up to maxRetries+1 times. A nil return from fn short-circuits
// the remaining attempts. When the transport budget is exhausted the last
// error is wrapped in a TransportExhaustedError with the total attempt count.
func (r *Retrier) Do(ctx context.Context, maxRetries int, name string, fn func(attempt int) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if !apperrors.IsTransport(lastErr) {
			return lastErr
		}

		if attempt == maxRetries {
			break
		}

		backoff := r.backoff(attempt)
		r.logger().Warn("request attempt failed, retrying",
			zap.String("endpoint", name),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries+1),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr),
		)

		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}
	}

	r.logger().Warn("exhausted retry attempts, giving up",
		zap.String("endpoint", name),
		zap.Int("attempts", maxRetries+1),
		zap.Error(lastErr),
	)

	return &apperrors.TransportExhaustedError{Attempts: maxRetries + 1, Err: lastErr}
}

func (r *Retrier) backoff(attempt int) time.Duration {
	base := r.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	return base << uint(attempt)
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if r != nil && r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func (r *Retrier) logger() *zap.Logger {
	if r != nil && r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

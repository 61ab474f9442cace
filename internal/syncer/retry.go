package syncer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/tradeengage/jobrouting/internal/provider"
)

// RetryConfig bounds the in-attempt retry loop around one provider call.
// This loop absorbs transient blips inside a single claim; the routing-level
// retry_count handles failures that outlive it.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig matches the provider sync defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
	}
}

// Retry runs fn up to MaxAttempts times with exponential backoff and ±25%
// jitter between attempts. It stops early on non-retryable errors and on
// context cancellation, returning the last error either way.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-time.After(backoffDelay(cfg, attempt)):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !provider.IsRetryable(lastErr) {
			return lastErr
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}

	return lastErr
}

// backoffDelay computes base * 2^(attempt-1) with ±25% jitter, capped at
// MaxDelay.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay * (1 << (attempt - 1))
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
	delay += jitter
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

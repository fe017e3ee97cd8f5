// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/btcsuite/ordtx/wallet"
)

// RetryConfig bounds how often and how slowly a failed request is retried.
type RetryConfig struct {
	// MaxAttempts is the number of attempts including the first one.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. It doubles on every
	// further retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay between two attempts.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns four attempts with delays of about 1s, 2s and 4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    4 * time.Second,
	}
}

// Retry runs op until it succeeds, fails with an error that is not
// retryable, or runs out of attempts. Only network-kind failures are
// retried; server rejections and cancellation are returned at once.
func Retry[T any](ctx context.Context, cfg RetryConfig,
	op func() (T, error)) (T, error) {

	attempts := max(cfg.MaxAttempts, 1)

	var (
		result T
		err    error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		result, err = op()
		if err == nil || !isRetryable(err) {
			return result, err
		}

		if attempt == attempts-1 {
			break
		}

		delay := backoff(attempt, cfg.BaseDelay, cfg.MaxDelay)
		log.Debugf("Attempt %d failed, retrying in %v: %v", attempt+1,
			delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()

		case <-timer.C:
		}
	}

	return result, fmt.Errorf("giving up after %d attempts: %w", attempts,
		err)
}

// isRetryable reports whether err is a transient failure.
func isRetryable(err error) bool {
	return wallet.KindOf(err) == wallet.KindNetwork
}

// backoff returns the delay before retry number attempt+1: an exponential
// delay capped at maxDelay, with jitter in [delay/2, delay).
func backoff(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if baseDelay <= 0 {
		return 0
	}

	delay := baseDelay << min(attempt, 30)
	if delay <= 0 || (maxDelay > 0 && delay > maxDelay) {
		delay = maxDelay
	}

	half := delay / 2
	if half <= 0 {
		return delay
	}

	return half + time.Duration(rand.Int63n(int64(half)))
}

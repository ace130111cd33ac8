// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig controls Do. MaxRetries counts attempts after the first.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration // zero means uncapped
	Multiplier      float64
	Jitter          bool // adds up to 25% to each delay
	OnRetry         func(attempt int, err error)
}

// DefaultRetryConfig suits a hosted inference endpoint that may be cold.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		Multiplier:      2,
		Jitter:          true,
	}
}

// delay returns the wait before the given retry (1-based).
func (c RetryConfig) delay(retry int) time.Duration {
	mult := c.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(c.InitialInterval) * math.Pow(mult, float64(retry-1))
	if c.Jitter {
		d += d * 0.25 * rand.Float64()
	}
	if c.MaxInterval > 0 && d > float64(c.MaxInterval) {
		return c.MaxInterval
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// retries run out. It returns the last error. A nil breaker disables
// circuit breaking; an open breaker ends the loop because its error is not
// retryable.
//
// Do never sleeps past ctx: when the next delay would outlive the deadline
// it gives up immediately with the last error.
func Do[T any](ctx context.Context, cfg RetryConfig, cb *CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	call := func(ctx context.Context) error {
		result, err = fn(ctx)
		return err
	}
	if cb != nil {
		inner := call
		call = func(ctx context.Context) error { return cb.Execute(ctx, inner) }
	}

	for attempt := 0; ; attempt++ {
		lastErr := call(ctx)
		if lastErr == nil {
			return result, nil
		}
		if attempt >= cfg.MaxRetries || !IsRetryable(lastErr) {
			return result, lastErr
		}

		wait := cfg.delay(attempt + 1)
		if hint, ok := RetryAfterHint(lastErr); ok && hint > wait {
			wait = hint
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return result, lastErr
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, lastErr
		case <-timer.C:
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}
	}
}

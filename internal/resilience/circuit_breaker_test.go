// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func unavailable(context.Context) error {
	return &StatusError{StatusCode: http.StatusServiceUnavailable}
}

func succeed(context.Context) error { return nil }

func TestCircuitBreakerLifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []string
	cfg := DefaultBreakerConfig("hf")
	cfg.FailureThreshold = 2
	cfg.Cooldown = 10 * time.Second
	cfg.Now = clock.Now
	cfg.OnStateChange = func(_ string, from, to State) {
		transitions = append(transitions, string(from)+"->"+string(to))
	}
	cb := NewCircuitBreaker(cfg)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, unavailable))
	assert.Equal(t, StateClosed, cb.State())
	require.Error(t, cb.Execute(ctx, unavailable))
	assert.Equal(t, StateOpen, cb.State())

	clock.Advance(4 * time.Second)
	calls := 0
	err := cb.Execute(ctx, func(context.Context) error { calls++; return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Zero(t, calls)
	assert.False(t, IsRetryable(err))

	var open *BreakerOpenError
	require.ErrorAs(t, err, &open)
	assert.Equal(t, 2, open.Failures)
	assert.Equal(t, 6*time.Second, open.RetryAfter)

	clock.Advance(7 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cfg := BreakerConfig{Name: "hf", FailureThreshold: 3, Cooldown: time.Second, Now: clock.Now}
	cb := NewCircuitBreaker(cfg)
	ctx := context.Background()

	for range 3 {
		_ = cb.Execute(ctx, unavailable)
	}
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(2 * time.Second)
	_ = cb.Execute(ctx, func(context.Context) error { return Transient("reset", nil) })
	assert.Equal(t, StateOpen, cb.State(), "one failed probe reopens")
	assert.Equal(t, 4, cb.Failures())
}

func TestCircuitBreakerSingleProbe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := NewCircuitBreaker(BreakerConfig{Name: "hf", FailureThreshold: 1, Cooldown: time.Second, Now: clock.Now})
	ctx := context.Background()
	_ = cb.Execute(ctx, unavailable)
	clock.Advance(time.Second)

	err := cb.Execute(ctx, func(ctx context.Context) error {
		assert.Equal(t, StateHalfOpen, cb.State())
		assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrBreakerOpen, "second caller waits for the probe")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerIgnoresNonRetryableErrors(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{Name: "hf", FailureThreshold: 1})
	ctx := context.Background()

	err := cb.Execute(ctx, func(context.Context) error {
		return &StatusError{StatusCode: http.StatusUnauthorized}
	})
	require.Error(t, err)
	_ = cb.Execute(ctx, func(context.Context) error { return context.Canceled })
	_ = cb.Execute(ctx, func(context.Context) error { return errors.New("parse") })

	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Failures())
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{Name: "hf", FailureThreshold: 1, Cooldown: time.Hour})
	_ = cb.Execute(context.Background(), unavailable)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Failures())
	assert.NoError(t, cb.Execute(context.Background(), succeed))
}

func TestDoStopsAtOpenBreaker(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{Name: "hf", FailureThreshold: 2, Cooldown: time.Hour})

	calls := 0
	_, err := Do(context.Background(), fastRetry(5), cb, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, &StatusError{StatusCode: http.StatusBadGateway}
	})

	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 2, calls)
}

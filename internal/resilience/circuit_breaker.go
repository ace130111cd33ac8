// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the position of a CircuitBreaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	Name string
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int
	// Cooldown is how long an open breaker rejects calls before letting a
	// single probe through.
	Cooldown time.Duration
	// IsFailure decides which errors count. Defaults to IsRetryable, so a
	// rejected credential never opens the breaker for other callers.
	IsFailure     func(error) bool
	OnStateChange func(name string, from, to State)
	Now           func() time.Time
}

// DefaultBreakerConfig opens after five straight upstream failures and
// probes again after thirty seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// ErrBreakerOpen is matched by errors.Is for every rejection.
var ErrBreakerOpen = errors.New("circuit breaker open")

// BreakerOpenError is returned without calling the protected function.
type BreakerOpenError struct {
	Name       string
	Failures   int
	RetryAfter time.Duration
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open after %d consecutive failures; retry in %s",
		e.Name, e.Failures, e.RetryAfter.Round(time.Second))
}

func (e *BreakerOpenError) Is(target error) bool { return target == ErrBreakerOpen }

// CircuitBreaker fails fast while an upstream is known to be down. It is
// safe for concurrent use.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = IsRetryable
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		elapsed := cb.cfg.Now().Sub(cb.openedAt)
		if elapsed < cb.cfg.Cooldown {
			return &BreakerOpenError{Name: cb.cfg.Name, Failures: cb.failures, RetryAfter: cb.cfg.Cooldown - elapsed}
		}
		cb.transition(StateHalfOpen)
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			return &BreakerOpenError{Name: cb.cfg.Name, Failures: cb.failures}
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if err == nil || !cb.cfg.IsFailure(err) {
		cb.failures = 0
		cb.transition(StateClosed)
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.openedAt = cb.cfg.Now()
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}

// State returns the current state without advancing it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current run of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the breaker and forgets past failures.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probing = false
	cb.openedAt = time.Time{}
	cb.transition(StateClosed)
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Class groups failures by how a caller should react to them.
type Class string

const (
	ClassUnknown     Class = "unknown"
	ClassNetwork     Class = "network"      // refused, reset, DNS
	ClassTimeout     Class = "timeout"      // transport or gateway timeout
	ClassRateLimited Class = "rate_limited" // 429
	ClassUnavailable Class = "unavailable"  // 5xx, model cold start
	ClassAuth        Class = "auth"         // 401, 403
	ClassRejected    Class = "rejected"     // other 4xx
	ClassCanceled    Class = "canceled"     // the caller's context ended
	ClassPermanent   Class = "permanent"
	ClassTransient   Class = "transient"
)

// Retryable reports whether another attempt can succeed.
func (c Class) Retryable() bool {
	switch c {
	case ClassNetwork, ClassTimeout, ClassRateLimited, ClassUnavailable, ClassTransient:
		return true
	}
	return false
}

// Error carries an explicit class. Use it when the failure is known at the
// call site and should not be inferred.
type Error struct {
	Class   Class
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Class)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Transient marks a failure worth retrying.
func Transient(message string, cause error) *Error {
	return &Error{Class: ClassTransient, Message: message, Err: cause}
}

// Permanent marks a failure that no retry will fix.
func Permanent(message string, cause error) *Error {
	return &Error{Class: ClassPermanent, Message: message, Err: cause}
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration // zero when the server sent no usable hint
}

func (e *StatusError) Error() string {
	status := fmt.Sprintf("upstream returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body == "" {
		return status
	}
	return status + ": " + e.Body
}

// NewStatusError builds a StatusError from a response whose body was already
// read. Retry-After is accepted in delta-seconds or HTTP-date form.
func NewStatusError(resp *http.Response, body string) *StatusError {
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(body),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// Classify inspects err and its chain. A nil error is ClassUnknown.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	var explicit *Error
	if errors.As(err, &explicit) {
		return explicit.Class
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCanceled
	}
	var status *StatusError
	if errors.As(err, &status) {
		return classifyStatus(status.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	if isNetworkError(err) {
		return ClassNetwork
	}
	return ClassUnknown
}

func classifyStatus(code int) Class {
	switch {
	case code == http.StatusTooManyRequests:
		return ClassRateLimited
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return ClassTimeout
	case code >= 500:
		return ClassUnavailable
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ClassAuth
	default:
		return ClassRejected
	}
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EHOSTUNREACH, syscall.ENETUNREACH} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	return err != nil && Classify(err).Retryable()
}

// RetryAfterHint returns the server's Retry-After for rate-limited and
// unavailable responses.
func RetryAfterHint(err error) (time.Duration, bool) {
	var status *StatusError
	if !errors.As(err, &status) || status.RetryAfter <= 0 {
		return 0, false
	}
	switch classifyStatus(status.StatusCode) {
	case ClassRateLimited, ClassUnavailable:
		return status.RetryAfter, true
	}
	return 0, false
}

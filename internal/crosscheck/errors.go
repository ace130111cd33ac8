// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a caller or deployment mistake detected before
// any extraction starts, such as a missing credential or a non-positive timeout.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// NewConfigurationError formats a ConfigurationError.
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// ExtractionKind separates a timed-out extraction from any other failure.
type ExtractionKind string

const (
	KindTimeout ExtractionKind = "timeout"
	KindFailed  ExtractionKind = "failed"
)

var (
	// ErrVLMExtraction matches VLM failures other than timeouts.
	ErrVLMExtraction = errors.New("Qwen2-VL extraction failed")
	// ErrVLMTimeout matches VLM calls that exceeded their deadline.
	ErrVLMTimeout = errors.New("Qwen2-VL extraction timed out")
)

// ExtractionError is returned by extraction collaborators. The service treats
// both kinds identically; the kind is kept for diagnostics.
type ExtractionError struct {
	Source  Source
	Kind    ExtractionKind
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s extraction %s", e.Source, e.Kind)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match VLM errors against ErrVLMTimeout and ErrVLMExtraction.
func (e *ExtractionError) Is(target error) bool {
	if e.Source != SourceVLM {
		return false
	}
	switch target {
	case ErrVLMTimeout:
		return e.Kind == KindTimeout
	case ErrVLMExtraction:
		return e.Kind == KindFailed
	}
	return false
}

// NewVLMTimeoutError builds the timeout kind of VLM error.
func NewVLMTimeoutError(message string, cause error) *ExtractionError {
	return &ExtractionError{Source: SourceVLM, Kind: KindTimeout, Message: message, Err: cause}
}

// NewVLMExtractionError builds the generic failure kind of VLM error.
func NewVLMExtractionError(message string, cause error) *ExtractionError {
	return &ExtractionError{Source: SourceVLM, Kind: KindFailed, Message: message, Err: cause}
}

// IsTimeout reports whether err is an ExtractionError of the timeout kind.
func IsTimeout(err error) bool {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr.Kind == KindTimeout
	}
	return false
}

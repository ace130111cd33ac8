// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies document loading failures.
type ErrorType string

const (
	ErrorTypeFileAccess        ErrorType = "file_access"
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
	ErrorTypeDecode            ErrorType = "decode_failed"
	ErrorTypeNoImage           ErrorType = "no_image"
	ErrorTypeTooLarge          ErrorType = "too_large"
)

// ErrUnsupportedFormat is matched by errors.Is for ProcessingErrors of the
// unsupported format type.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ProcessingError describes why a document could not be turned into an image.
type ProcessingError struct {
	FilePath  string
	ErrorType ErrorType
	Message   string
	Cause     error
}

func (e *ProcessingError) Error() string {
	parts := []string{fmt.Sprintf("document processing failed for %s", e.FilePath)}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

func (e *ProcessingError) Is(target error) bool {
	return target == ErrUnsupportedFormat && e.ErrorType == ErrorTypeUnsupportedFormat
}

func newProcessingError(path string, errType ErrorType, message string, cause error) *ProcessingError {
	return &ProcessingError{FilePath: path, ErrorType: errType, Message: message, Cause: cause}
}

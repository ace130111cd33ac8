// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package passport

import "errors"

var (
	// ErrMRZNotFound is returned when no machine readable zone is present.
	ErrMRZNotFound = errors.New("no Machine Readable Zone (MRZ) detected")
	// ErrImageRead wraps failures to open or decode the document.
	ErrImageRead = errors.New("failed to read image")
	// ErrUnsupportedFormat is returned for file extensions the extractor cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrTesseractNotFound means the OCR engine could not be initialised.
	ErrTesseractNotFound = errors.New("tesseract OCR engine not available")
)

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"bytes"
	"fmt"
	"image"
)

// ResourceLimits bounds what the loaders will decode. Zero disables a limit.
type ResourceLimits struct {
	MaxFileSize int64 // bytes
	MaxPixels   int64 // width * height of the decoded raster
}

// DefaultResourceLimits covers a 600 dpi A4 scan with room to spare.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxFileSize: 50 * 1024 * 1024,
		MaxPixels:   80_000_000,
	}
}

var limits = DefaultResourceLimits()

// SetResourceLimits replaces the package-wide limits.
func SetResourceLimits(l ResourceLimits) {
	limits = l
}

// CheckFileSize rejects files above the configured size.
func (l ResourceLimits) CheckFileSize(path string, size int64) error {
	if l.MaxFileSize > 0 && size > l.MaxFileSize {
		return newProcessingError(path, ErrorTypeTooLarge,
			fmt.Sprintf("file size %d exceeds limit %d", size, l.MaxFileSize), nil)
	}
	return nil
}

// CheckDimensions reads only the image header and rejects rasters whose
// decoded size would exceed the pixel limit.
func (l ResourceLimits) CheckDimensions(path string, data []byte) error {
	if l.MaxPixels <= 0 {
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// The full decode reports the real error.
		return nil
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > l.MaxPixels {
		return newProcessingError(path, ErrorTypeTooLarge,
			fmt.Sprintf("%dx%d image exceeds %d pixels", cfg.Width, cfg.Height, l.MaxPixels), nil)
	}
	return nil
}

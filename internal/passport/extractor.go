// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package passport

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"passport-crosscheck/internal/ocr"
	"passport-crosscheck/internal/preprocessors"
)

// SupportedExtensions lists the document types the MRZ extractor accepts.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".pdf"}

// defaultBandFraction is the share of the page height, measured from the
// bottom, searched first for the MRZ.
const defaultBandFraction = 0.35

// Extractor reads the MRZ of a passport image with an OCR engine.
type Extractor struct {
	engine       ocr.Engine
	languages    []string
	bandFraction float64
	logger       *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLanguages sets the OCR trained data to use.
func WithLanguages(langs ...string) ExtractorOption {
	return func(e *Extractor) {
		if len(langs) > 0 {
			e.languages = append([]string(nil), langs...)
		}
	}
}

// WithLogger attaches a logger for per-pass diagnostics.
func WithLogger(logger *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an MRZ extractor backed by engine.
func NewExtractor(engine ocr.Engine, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		engine:       engine,
		languages:    []string{"eng"},
		bandFraction: defaultBandFraction,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsSupported reports whether the extractor accepts the file extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extract locates and decodes the MRZ. PDFs are searched in their text layer
// before their first page image is recognised.
func (e *Extractor) Extract(ctx context.Context, imagePath string) (*RawMRZData, error) {
	if !IsSupported(imagePath) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(imagePath))
	}
	if _, err := os.Stat(imagePath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageRead, err)
	}

	var (
		img image.Image
		err error
	)
	if preprocessors.IsPDF(imagePath) {
		if data := e.fromTextLayer(imagePath); data != nil {
			return data, nil
		}
		img, err = preprocessors.LoadPDFImage(imagePath)
	} else {
		img, _, err = preprocessors.LoadImage(imagePath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageRead, err)
	}

	for _, fraction := range []float64{e.bandFraction, 1} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := e.recognize(ctx, img, fraction)
		if err != nil {
			return nil, err
		}
		if data != nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w in image: %s", ErrMRZNotFound, filepath.Base(imagePath))
}

func (e *Extractor) fromTextLayer(path string) *RawMRZData {
	text, err := preprocessors.ExtractPDFText(path)
	if err != nil {
		e.logger.Debug("PDF text layer unavailable", zap.String("file_path", path), zap.Error(err))
		return nil
	}
	data, err := ParseMRZ(text)
	if err != nil {
		return nil
	}
	confidence := 1.0
	data.Confidence = &confidence
	return data
}

// recognize runs one OCR pass over the bottom fraction of the page. A nil
// result without error means no MRZ was found in that region.
func (e *Extractor) recognize(ctx context.Context, img image.Image, fraction float64) (*RawMRZData, error) {
	encoded, err := preprocessors.EncodePNG(preprocessors.MRZBand(img, fraction))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageRead, err)
	}

	res, err := e.engine.Recognize(ctx, ocr.NewInput(
		fmt.Sprintf("mrz-band-%.2f", fraction),
		encoded,
		ocr.WithLanguages(e.languages...),
		ocr.WithWhitelist(ocr.MRZCharset),
	))
	if err != nil {
		if errors.Is(err, ocr.ErrEngineUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrTesseractNotFound, err)
		}
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	data, err := ParseMRZ(res.PlainText)
	if err != nil {
		e.logger.Debug("no MRZ in OCR pass",
			zap.String("engine", e.engine.Name()),
			zap.Float64("band_fraction", fraction),
			zap.Int("chars", len(res.PlainText)))
		return nil, nil
	}
	if res.Confidence > 0 {
		confidence := res.Confidence
		data.Confidence = &confidence
	}
	return data, nil
}

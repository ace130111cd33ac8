// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ocr defines the optical character recognition boundary used by the
// MRZ extractor. Engines live in subpackages.
package ocr

import (
	"context"
	"errors"
)

// ErrEngineUnavailable means the OCR engine or its language data could not be
// initialised on this host.
var ErrEngineUnavailable = errors.New("OCR engine not available")

// MRZCharset is the full alphabet of an ICAO machine readable zone.
const MRZCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

// Input is a single image submitted for recognition.
type Input struct {
	// ID is echoed back in the Result.
	ID string
	// Image is an encoded PNG, JPEG or TIFF payload.
	Image []byte
	// Languages are trained data hints such as "eng" or "ocrb".
	Languages []string
	// Whitelist restricts recognised characters when not empty.
	Whitelist string
	// DPI is the effective resolution; zero means unknown.
	DPI int
}

// Word is one recognised token.
type Word struct {
	Text       string
	Confidence float64
}

// Result is the recognised text of one input.
type Result struct {
	InputID   string
	PlainText string
	Words     []Word
	// Confidence is the mean word confidence in [0, 1]; zero when the engine
	// reported none.
	Confidence float64
}

// Engine recognises text in images.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// InputOption mutates an Input.
type InputOption func(*Input)

// WithLanguages sets trained data hints.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithWhitelist restricts recognition to the given characters.
func WithWhitelist(chars string) InputOption {
	return func(in *Input) { in.Whitelist = chars }
}

// WithDPI overrides the resolution hint.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// NewInput builds an Input for an encoded image.
func NewInput(id string, image []byte, opts ...InputOption) Input {
	in := Input{ID: id, Image: image}
	for _, opt := range opts {
		opt(&in)
	}
	return in
}

// MeanConfidence averages word confidences.
func MeanConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tesseract provides the Tesseract backed OCR engine.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"passport-crosscheck/internal/ocr"
)

// Engine implements ocr.Engine with a gosseract client per call.
type Engine struct {
	clientFactory func() *gosseract.Client
	pageSegMode   gosseract.PageSegMode
}

// New creates a Tesseract engine using automatic page segmentation.
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient, pageSegMode: gosseract.PSM_AUTO}
}

func (e *Engine) Name() string { return "tesseract" }

// Version reports the linked libtesseract version.
func (e *Engine) Version() string { return gosseract.Version() }

// Recognize runs OCR on one image. The client is not interruptible, so a
// cancelled context is only observed before recognition starts.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.Whitelist != "" {
		if err := c.SetWhitelist(in.Whitelist); err != nil {
			return ocr.Result{}, fmt.Errorf("set whitelist: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetPageSegMode(e.pageSegMode); err != nil {
		return ocr.Result{}, fmt.Errorf("set page segmentation mode: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		if isInitError(err) {
			return ocr.Result{}, fmt.Errorf("%w: %v", ocr.ErrEngineUnavailable, err)
		}
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}

	words := extractWords(c)
	return ocr.Result{
		InputID:    in.ID,
		PlainText:  strings.TrimSpace(text),
		Words:      words,
		Confidence: ocr.MeanConfidence(words),
	}, nil
}

func extractWords(c *gosseract.Client) []ocr.Word {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	words := make([]ocr.Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ocr.Word{Text: b.Word, Confidence: b.Confidence / 100.0})
	}
	return words
}

// isInitError detects failures to load libtesseract or its trained data.
func isInitError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "TessBaseAPI") || strings.Contains(msg, "tessdata")
}

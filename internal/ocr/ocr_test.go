// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInputAppliesOptions(t *testing.T) {
	langs := []string{"eng", "ocrb"}
	in := NewInput("page-1", []byte{1, 2, 3},
		WithLanguages(langs...),
		WithWhitelist(MRZCharset),
		WithDPI(300),
	)

	assert.Equal(t, "page-1", in.ID)
	assert.Equal(t, []byte{1, 2, 3}, in.Image)
	assert.Equal(t, MRZCharset, in.Whitelist)
	assert.Equal(t, 300, in.DPI)

	langs[0] = "deu"
	assert.Equal(t, []string{"eng", "ocrb"}, in.Languages, "languages must be copied")
}

func TestMeanConfidence(t *testing.T) {
	assert.Equal(t, 0.0, MeanConfidence(nil))
	assert.InDelta(t, 0.75, MeanConfidence([]Word{{Text: "P<UTO", Confidence: 0.5}, {Text: "L898902C3", Confidence: 1.0}}), 1e-9)
}

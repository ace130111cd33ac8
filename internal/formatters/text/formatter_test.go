// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/formatters"
	"passport-crosscheck/internal/passport"
)

func ptr(s string) *string { return &s }

var plainText = formatters.FormatterOptions{NoColor: true}

func successResult() *crosscheck.CrossCheckResult {
	confidence := 0.9667
	dob := time.Date(1974, 8, 12, 0, 0, 0, 0, time.UTC)
	vlmMs := int64(1500)
	return &crosscheck.CrossCheckResult{
		Status: crosscheck.StatusSuccess,
		PassportData: &passport.PassportData{
			Surname:        ptr("ERIKSSON"),
			GivenNames:     ptr("ANNA MARIA"),
			PassportNumber: ptr("L898902C3"),
			DateOfBirth:    &dob,
		},
		FieldConfidences: map[crosscheck.Field]float64{
			crosscheck.FieldSurname:        0.4,
			crosscheck.FieldPassportNumber: 1.0,
		},
		DocumentConfidence: &confidence,
		SourcesUsed:        []crosscheck.Source{crosscheck.SourceMRZ, crosscheck.SourceVLM},
		Discrepancies: []crosscheck.FieldDiscrepancy{{
			FieldName:        crosscheck.FieldSurname,
			MRZValue:         ptr("ERIKSSON"),
			VLMValue:         ptr("ERIKSON"),
			RecommendedValue: ptr("ERIKSON"),
			Severity:         crosscheck.SeverityWarning,
		}},
		Metadata: &crosscheck.ProcessingMetadata{
			ExtractionDurationMs: 1520,
			VLMDurationMs:        &vlmMs,
			VLMModel:             "Qwen/Qwen2-VL-7B-Instruct",
			Timestamp:            time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		},
	}
}

func TestFormatSuccess(t *testing.T) {
	out, err := NewFormatter().Format(successResult(), plainText)
	require.NoError(t, err)

	assert.Contains(t, out, "Status: success\n")
	assert.Contains(t, out, "Sources: mrz, qwen2-vl\n")
	assert.Contains(t, out, "Document Confidence: 96.7%\n")
	assert.Contains(t, out, "Extracted Fields:")
	assert.Contains(t, out, "Discrepancies (1):")
	assert.NotContains(t, out, "Metadata:")
	assert.NotContains(t, out, "\x1b[", "no escape codes when color is off")

	lines := strings.Split(out, "\n")
	var surnameRow, nationalityRow, discRow string
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "Surname "):
			surnameRow = l
		case strings.HasPrefix(l, "Nationality "):
			nationalityRow = l
		case strings.HasPrefix(l, "surname "):
			discRow = l
		}
	}
	assert.Regexp(t, `^Surname\s+ERIKSSON\s+40%$`, surnameRow)
	assert.Regexp(t, `^Nationality\s+-\s+-$`, nationalityRow)
	assert.Regexp(t, `^surname\s+warning\s+ERIKSSON\s+ERIKSON\s+ERIKSON$`, discRow)
	assert.Contains(t, out, "1974-08-12")
}

func TestFormatColumnsAlign(t *testing.T) {
	out, err := NewFormatter().Format(successResult(), plainText)
	require.NoError(t, err)

	var header, rule string
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "Field ") && strings.Contains(l, "Confidence") {
			header, rule = l, lines[i+1]
			break
		}
	}
	require.NotEmpty(t, header)
	assert.Equal(t, strings.Index(header, "Value"), strings.Index(rule, " -")+1)
}

func TestFormatVerboseMetadata(t *testing.T) {
	out, err := NewFormatter().Format(successResult(), formatters.FormatterOptions{NoColor: true, Verbose: true})
	require.NoError(t, err)

	assert.Contains(t, out, "Metadata:")
	assert.Regexp(t, `Total Duration\s+1520ms`, out)
	assert.Regexp(t, `VLM Duration\s+1500ms`, out)
	assert.NotContains(t, out, "MRZ Duration")
	assert.Regexp(t, `Timestamp\s+2026-05-01T08:00:00Z`, out)
}

func TestFormatNoDiscrepancies(t *testing.T) {
	r := successResult()
	r.Discrepancies = nil
	out, err := NewFormatter().Format(r, plainText)
	require.NoError(t, err)
	assert.Contains(t, out, "No discrepancies found - sources agree.")
}

func TestFormatError(t *testing.T) {
	r := &crosscheck.CrossCheckResult{
		Status:   crosscheck.StatusError,
		Error:    ptr("Both extraction sources failed"),
		MRZError: ptr("MRZ extraction failed: unreadable"),
		VLMError: ptr("VLM extraction timed out after 1m0s"),
	}
	out, err := NewFormatter().Format(r, plainText)
	require.NoError(t, err)

	assert.Contains(t, out, "Status: error")
	assert.Contains(t, out, "Error: Both extraction sources failed\n  MRZ: MRZ extraction failed: unreadable\n  VLM: VLM extraction timed out after 1m0s\n")
	assert.NotContains(t, out, "Extracted Fields")
	assert.NotContains(t, out, "Sources:")
}

func TestFormatWithColor(t *testing.T) {
	out, err := NewFormatter().Format(successResult(), formatters.FormatterOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[32msuccess\x1b[0m")
}

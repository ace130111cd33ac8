// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passport-crosscheck/internal/passport"
)

func TestToDocument(t *testing.T) {
	mrzMs, vlmMs := int64(120), int64(900)
	confidence := 0.85
	result := &CrossCheckResult{
		Status:             StatusPartial,
		PassportData:       &passport.PassportData{SourceFile: "p.jpg", Surname: strPtr("SMITH"), RawMRZ: strPtr("P<...")},
		FieldConfidences:   map[Field]float64{FieldSurname: 0.7},
		DocumentConfidence: &confidence,
		SourcesUsed:        []Source{SourceMRZ},
		VLMError:           strPtr("VLM extraction timed out after 1m0s"),
		Metadata: &ProcessingMetadata{
			ExtractionDurationMs: 1000,
			MRZDurationMs:        &mrzMs,
			VLMDurationMs:        &vlmMs,
			VLMModel:             DefaultVLMModel,
			Timestamp:            time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600)),
		},
	}

	doc := result.ToDocument(true)
	assert.Equal(t, StatusPartial, doc.Status)
	assert.Equal(t, map[string]float64{"surname": 0.7}, doc.FieldConfidences)
	assert.NotNil(t, doc.Discrepancies)
	assert.NotContains(t, doc.PassportData, "raw_mrz")
	require.NotNil(t, doc.Metadata)
	assert.Equal(t, "2026-01-02T02:04:05Z", doc.Metadata.Timestamp)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "partial", decoded["status"])
	assert.Equal(t, []interface{}{"mrz"}, decoded["sources_used"])
	assert.Equal(t, []interface{}{}, decoded["discrepancies"])
	assert.Nil(t, decoded["mrz_error"])
	assert.Equal(t, "VLM extraction timed out after 1m0s", decoded["vlm_error"])

	assert.Nil(t, result.ToDocument(false).Metadata)
}

func TestToDocumentErrorResult(t *testing.T) {
	result := &CrossCheckResult{Status: StatusError, Error: strPtr("Both extraction sources failed")}
	doc := result.ToDocument(true)

	assert.Nil(t, doc.PassportData)
	assert.Nil(t, doc.DocumentConfidence)
	assert.Empty(t, doc.SourcesUsed)
	assert.NotNil(t, doc.SourcesUsed)
	assert.Nil(t, doc.Metadata)
}

func TestDiscrepancyHelpers(t *testing.T) {
	result := &CrossCheckResult{Discrepancies: []FieldDiscrepancy{
		{FieldName: FieldSurname, Severity: SeverityWarning},
		{FieldName: FieldPassportNumber, Severity: SeverityCritical},
	}}
	assert.True(t, result.HasDiscrepancies())
	critical := result.CriticalDiscrepancies()
	require.Len(t, critical, 1)
	assert.Equal(t, FieldPassportNumber, critical[0].FieldName)

	assert.False(t, (&CrossCheckResult{}).HasDiscrepancies())
}

func TestVisualZoneValue(t *testing.T) {
	var nilVisual *VisualZoneData
	assert.Nil(t, nilVisual.Value(FieldSurname))

	v := &VisualZoneData{PlaceOfBirth: strPtr("Zenith")}
	assert.Equal(t, "Zenith", deref(v.Value(FieldPlaceOfBirth)))
	assert.Nil(t, mrzValue(&passport.RawMRZData{Surname: strPtr("X")}, FieldPlaceOfBirth))
}

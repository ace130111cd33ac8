// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import (
	"time"

	"passport-crosscheck/internal/passport"
)

// Status is the terminal outcome of a cross-check request.
type Status string

const (
	StatusSuccess Status = "success" // both sources succeeded
	StatusPartial Status = "partial" // exactly one source succeeded
	StatusError   Status = "error"   // both sources failed
)

// VisualZoneData holds the fields a vision-language model read from the
// printed zone of the passport. Dates are expected in ISO form.
type VisualZoneData struct {
	Surname        *string `json:"surname"`
	GivenNames     *string `json:"given_names"`
	DateOfBirth    *string `json:"date_of_birth"`
	Nationality    *string `json:"nationality"`
	PassportNumber *string `json:"passport_number"`
	ExpiryDate     *string `json:"expiry_date"`
	Sex            *string `json:"sex"`
	PlaceOfBirth   *string `json:"place_of_birth"`
	RawResponse    *string `json:"raw_response,omitempty"`
}

// Value returns the raw value the visual zone holds for a field.
func (v *VisualZoneData) Value(f Field) *string {
	if v == nil {
		return nil
	}
	switch f {
	case FieldSurname:
		return v.Surname
	case FieldGivenNames:
		return v.GivenNames
	case FieldDateOfBirth:
		return v.DateOfBirth
	case FieldNationality:
		return v.Nationality
	case FieldPassportNumber:
		return v.PassportNumber
	case FieldExpiryDate:
		return v.ExpiryDate
	case FieldSex:
		return v.Sex
	case FieldPlaceOfBirth:
		return v.PlaceOfBirth
	default:
		return nil
	}
}

// mrzValue maps a standard field onto the MRZ record. The MRZ carries no
// place of birth.
func mrzValue(d *passport.RawMRZData, f Field) *string {
	if d == nil {
		return nil
	}
	switch f {
	case FieldSurname:
		return d.Surname
	case FieldGivenNames:
		return d.GivenNames
	case FieldDateOfBirth:
		return d.BirthDate
	case FieldNationality:
		return d.Nationality
	case FieldPassportNumber:
		return d.DocumentNumber
	case FieldExpiryDate:
		return d.ExpiryDate
	case FieldSex:
		return d.Sex
	default:
		return nil
	}
}

// FieldDiscrepancy records a disagreement between the two sources.
type FieldDiscrepancy struct {
	FieldName        Field    `json:"field_name" yaml:"field_name"`
	MRZValue         *string  `json:"mrz_value" yaml:"mrz_value"`
	VLMValue         *string  `json:"vlm_value" yaml:"vlm_value"`
	RecommendedValue *string  `json:"recommended_value" yaml:"recommended_value"`
	Severity         Severity `json:"severity" yaml:"severity"`
	Reason           string   `json:"reason" yaml:"reason"`
}

// FieldValidationResult is the comparison outcome for one field.
type FieldValidationResult struct {
	FieldName   Field
	Validated   bool
	MRZValue    *string
	VLMValue    *string
	FinalValue  *string
	Discrepancy *FieldDiscrepancy
}

// ProcessingMetadata carries timing and diagnostics for one request.
type ProcessingMetadata struct {
	ExtractionDurationMs int64
	MRZDurationMs        *int64
	VLMDurationMs        *int64
	VLMModel             string
	Timestamp            time.Time
}

// CrossCheckResult is the complete response of a cross-check request.
type CrossCheckResult struct {
	Status             Status
	PassportData       *passport.PassportData
	FieldConfidences   map[Field]float64
	DocumentConfidence *float64
	Discrepancies      []FieldDiscrepancy
	SourcesUsed        []Source

	MRZExtractionSuccess bool
	VLMExtractionSuccess bool

	Metadata *ProcessingMetadata

	Error    *string
	MRZError *string
	VLMError *string
}

// HasDiscrepancies reports whether the sources disagreed on any field.
func (r *CrossCheckResult) HasDiscrepancies() bool {
	return len(r.Discrepancies) > 0
}

// CriticalDiscrepancies returns only the critical-severity discrepancies.
func (r *CrossCheckResult) CriticalDiscrepancies() []FieldDiscrepancy {
	var critical []FieldDiscrepancy
	for _, d := range r.Discrepancies {
		if d.Severity == SeverityCritical {
			critical = append(critical, d)
		}
	}
	return critical
}

// Document is the serializable view of a CrossCheckResult.
type Document struct {
	Status               Status                 `json:"status" yaml:"status"`
	PassportData         map[string]interface{} `json:"passport_data" yaml:"passport_data"`
	FieldConfidences     map[string]float64     `json:"field_confidences" yaml:"field_confidences"`
	DocumentConfidence   *float64               `json:"document_confidence" yaml:"document_confidence"`
	Discrepancies        []FieldDiscrepancy     `json:"discrepancies" yaml:"discrepancies"`
	SourcesUsed          []Source               `json:"sources_used" yaml:"sources_used"`
	MRZExtractionSuccess bool                   `json:"mrz_extraction_success" yaml:"mrz_extraction_success"`
	VLMExtractionSuccess bool                   `json:"vlm_extraction_success" yaml:"vlm_extraction_success"`
	Error                *string                `json:"error" yaml:"error"`
	MRZError             *string                `json:"mrz_error" yaml:"mrz_error"`
	VLMError             *string                `json:"vlm_error" yaml:"vlm_error"`
	Metadata             *MetadataDocument      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// MetadataDocument is the serializable view of ProcessingMetadata.
type MetadataDocument struct {
	ExtractionDurationMs int64  `json:"extraction_duration_ms" yaml:"extraction_duration_ms"`
	MRZDurationMs        *int64 `json:"mrz_duration_ms" yaml:"mrz_duration_ms"`
	VLMDurationMs        *int64 `json:"vlm_duration_ms" yaml:"vlm_duration_ms"`
	VLMModel             string `json:"vlm_model" yaml:"vlm_model"`
	Timestamp            string `json:"timestamp" yaml:"timestamp"`
}

// ToDocument builds the serializable view. Metadata is included only when
// requested and present.
func (r *CrossCheckResult) ToDocument(includeMetadata bool) Document {
	doc := Document{
		Status:               r.Status,
		FieldConfidences:     make(map[string]float64, len(r.FieldConfidences)),
		DocumentConfidence:   r.DocumentConfidence,
		Discrepancies:        r.Discrepancies,
		SourcesUsed:          r.SourcesUsed,
		MRZExtractionSuccess: r.MRZExtractionSuccess,
		VLMExtractionSuccess: r.VLMExtractionSuccess,
		Error:                r.Error,
		MRZError:             r.MRZError,
		VLMError:             r.VLMError,
	}
	if r.PassportData != nil {
		doc.PassportData = r.PassportData.ToMap(false)
	}
	for f, c := range r.FieldConfidences {
		doc.FieldConfidences[f.String()] = c
	}
	if doc.Discrepancies == nil {
		doc.Discrepancies = []FieldDiscrepancy{}
	}
	if doc.SourcesUsed == nil {
		doc.SourcesUsed = []Source{}
	}
	if includeMetadata && r.Metadata != nil {
		doc.Metadata = &MetadataDocument{
			ExtractionDurationMs: r.Metadata.ExtractionDurationMs,
			MRZDurationMs:        r.Metadata.MRZDurationMs,
			VLMDurationMs:        r.Metadata.VLMDurationMs,
			VLMModel:             r.Metadata.VLMModel,
			Timestamp:            r.Metadata.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	return doc
}

func strPtr(s string) *string { return &s }

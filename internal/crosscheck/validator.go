// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import "passport-crosscheck/internal/passport"

// CrossValidator compares the standard fields of the two sources.
type CrossValidator struct {
	reporter *DiscrepancyReporter
}

// NewCrossValidator creates a cross-validator that records disagreements
// through the given reporter. A nil reporter gets a default one.
func NewCrossValidator(reporter *DiscrepancyReporter) *CrossValidator {
	if reporter == nil {
		reporter = NewDiscrepancyReporter()
	}
	return &CrossValidator{reporter: reporter}
}

// CrossValidate emits one result per standard field that at least one source
// supplied. Either argument may be nil when that source failed.
func (v *CrossValidator) CrossValidate(mrz *passport.RawMRZData, visual *VisualZoneData) []FieldValidationResult {
	if mrz == nil && visual == nil {
		return nil
	}

	results := make([]FieldValidationResult, 0, len(StandardFields))
	for _, f := range StandardFields {
		mrzRaw := mrzValue(mrz, f)
		vlmRaw := visual.Value(f)
		if mrzRaw == nil && vlmRaw == nil {
			continue
		}
		results = append(results, v.ValidateField(f, mrzRaw, vlmRaw))
	}
	return results
}

// ValidateField compares one field. A single present value is accepted as is;
// two values must match after normalization.
func (v *CrossValidator) ValidateField(f Field, mrzRaw, vlmRaw *string) FieldValidationResult {
	result := FieldValidationResult{
		FieldName:  f,
		Validated:  true,
		MRZValue:   mrzRaw,
		VLMValue:   vlmRaw,
		FinalValue: SelectValue(f, mrzRaw, vlmRaw),
	}
	if mrzRaw == nil || vlmRaw == nil {
		return result
	}

	if equalOptional(normalizeForComparison(f, mrzRaw), normalizeForComparison(f, vlmRaw)) {
		return result
	}

	d := v.reporter.CreateDiscrepancy(f, mrzRaw, vlmRaw)
	result.Validated = false
	result.Discrepancy = &d
	return result
}

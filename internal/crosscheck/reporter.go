// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import "fmt"

// DiscrepancyReporter classifies disagreements and recommends a value. It works
// from raw values alone, so it can report on validation results produced
// elsewhere.
type DiscrepancyReporter struct{}

// NewDiscrepancyReporter creates a reporter.
func NewDiscrepancyReporter() *DiscrepancyReporter {
	return &DiscrepancyReporter{}
}

// Severity is a static lookup in the shared policy table.
func (r *DiscrepancyReporter) Severity(f Field) Severity {
	return PolicyFor(f).Severity
}

// RecommendValue applies the shared source-preference rule.
func (r *DiscrepancyReporter) RecommendValue(f Field, mrzValue, vlmValue *string) *string {
	return SelectValue(f, mrzValue, vlmValue)
}

// Reason explains the recommendation in one line.
func (r *DiscrepancyReporter) Reason(f Field, mrzValue, vlmValue *string) string {
	switch {
	case mrzValue == nil && vlmValue != nil:
		return fmt.Sprintf("Only VLM has value for %s", f)
	case vlmValue == nil && mrzValue != nil:
		return fmt.Sprintf("Only MRZ has value for %s", f)
	}

	switch PolicyFor(f).Preference {
	case PreferVLM:
		return fmt.Sprintf("VLM preferred for %s; handles special characters better", f)
	case PreferMRZ:
		return fmt.Sprintf("MRZ preferred for %s; machine-readable data more reliable", f)
	default:
		return fmt.Sprintf("MRZ used as default for %s; values differ", f)
	}
}

// CreateDiscrepancy builds the discrepancy record for a field.
func (r *DiscrepancyReporter) CreateDiscrepancy(f Field, mrzValue, vlmValue *string) FieldDiscrepancy {
	return FieldDiscrepancy{
		FieldName:        f,
		MRZValue:         mrzValue,
		VLMValue:         vlmValue,
		RecommendedValue: r.RecommendValue(f, mrzValue, vlmValue),
		Severity:         r.Severity(f),
		Reason:           r.Reason(f, mrzValue, vlmValue),
	}
}

// GenerateReport keeps only the results that carry a discrepancy, in order.
func (r *DiscrepancyReporter) GenerateReport(results []FieldValidationResult) []FieldDiscrepancy {
	report := make([]FieldDiscrepancy, 0, len(results))
	for _, res := range results {
		if res.Discrepancy != nil {
			report = append(report, *res.Discrepancy)
		}
	}
	return report
}

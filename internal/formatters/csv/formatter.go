// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/formatters"
)

// Formatter implements CSV output formatting: one header row and one row per
// result.
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet analysis"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) MediaType() string {
	return "text/csv"
}

var baseColumns = []string{
	"status", "source_file", "surname", "given_names", "date_of_birth", "nationality",
	"passport_number", "expiry_date", "sex", "place_of_birth", "mrz_type", "mrz_valid",
	"document_confidence", "sources_used", "discrepancies", "error",
}

func (f *Formatter) Format(result *crosscheck.CrossCheckResult, options formatters.FormatterOptions) (string, error) {
	columns := baseColumns
	if options.Verbose {
		columns = append(append([]string{}, baseColumns...), "mrz_error", "vlm_error", "extraction_duration_ms")
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(columns); err != nil {
		return "", err
	}
	if err := w.Write(f.row(result, options)); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("error formatting CSV: %w", err)
	}
	return b.String(), nil
}

func (f *Formatter) row(result *crosscheck.CrossCheckResult, options formatters.FormatterOptions) []string {
	row := make([]string, 0, len(baseColumns)+3)
	row = append(row, string(result.Status))

	if pd := result.PassportData; pd != nil {
		mrzType := ""
		if pd.MRZType != nil {
			mrzType = string(*pd.MRZType)
		}
		row = append(row,
			pd.SourceFile,
			str(pd.Surname),
			str(pd.GivenNames),
			date(pd.DateOfBirth),
			str(pd.Nationality),
			str(pd.PassportNumber),
			date(pd.ExpiryDate),
			str(pd.Sex),
			str(pd.PlaceOfBirth),
			mrzType,
			strconv.FormatBool(pd.MRZValid),
		)
	} else {
		row = append(row, make([]string, 11)...)
	}

	confidence := ""
	if result.DocumentConfidence != nil {
		confidence = strconv.FormatFloat(*result.DocumentConfidence, 'f', 4, 64)
	}
	sources := make([]string, len(result.SourcesUsed))
	for i, s := range result.SourcesUsed {
		sources[i] = string(s)
	}
	discrepancies := make([]string, len(result.Discrepancies))
	for i, d := range result.Discrepancies {
		discrepancies[i] = fmt.Sprintf("%s:%s", d.FieldName, d.Severity)
	}
	row = append(row, confidence, strings.Join(sources, ";"), strings.Join(discrepancies, ";"), str(result.Error))

	if options.Verbose {
		duration := ""
		if result.Metadata != nil {
			duration = strconv.FormatInt(result.Metadata.ExtractionDurationMs, 10)
		}
		row = append(row, str(result.MRZError), str(result.VLMError), duration)
	}

	for i := range row {
		row[i] = sanitizeFormulaInjection(row[i])
	}
	return row
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// sanitizeFormulaInjection prefixes values a spreadsheet would evaluate as a
// formula. Extracted text comes from an untrusted document.
func sanitizeFormulaInjection(field string) string {
	if field == "" {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@':
		return "'" + field
	}
	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}

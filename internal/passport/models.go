// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package passport

import "time"

// MRZType is an ICAO 9303 machine readable zone layout.
type MRZType string

const (
	MRZTypeTD1  MRZType = "TD1"  // ID cards: 3 lines, 30 chars each
	MRZTypeTD2  MRZType = "TD2"  // ID cards: 2 lines, 36 chars each
	MRZTypeTD3  MRZType = "TD3"  // Passports: 2 lines, 44 chars each
	MRZTypeMRVA MRZType = "MRVA" // Visa type A: 2 lines, 44 chars each
	MRZTypeMRVB MRZType = "MRVB" // Visa type B: 2 lines, 36 chars each
)

// RawMRZData is the decoded MRZ before cross-validation. Dates keep the MRZ
// native YYMMDD form.
type RawMRZData struct {
	MRZType MRZType
	RawText string

	Surname        *string
	GivenNames     *string
	Country        *string
	Nationality    *string
	BirthDate      *string // YYMMDD
	Sex            *string // M, F or X
	ExpiryDate     *string // YYMMDD
	DocumentNumber *string
	OptionalData   *string
	Confidence     *float64 // 0.0 to 1.0 when the OCR engine reports it
}

// PassportData is the merged passport record returned to callers.
type PassportData struct {
	SourceFile string

	Surname        *string
	GivenNames     *string
	DateOfBirth    *time.Time
	Nationality    *string
	PassportNumber *string
	ExpiryDate     *time.Time
	Sex            *string
	PlaceOfBirth   *string

	MRZType          *MRZType
	MRZValid         bool
	CheckDigitErrors []string

	Confidence *float64
	RawMRZ     *string
}

// ToMap converts the record for JSON or YAML output. Confidence and raw MRZ
// text are included only in verbose mode.
func (p *PassportData) ToMap(verbose bool) map[string]interface{} {
	checkDigitErrors := p.CheckDigitErrors
	if checkDigitErrors == nil {
		checkDigitErrors = []string{}
	}
	result := map[string]interface{}{
		"source_file":        p.SourceFile,
		"surname":            p.Surname,
		"given_names":        p.GivenNames,
		"date_of_birth":      isoDate(p.DateOfBirth),
		"nationality":        p.Nationality,
		"passport_number":    p.PassportNumber,
		"expiry_date":        isoDate(p.ExpiryDate),
		"sex":                p.Sex,
		"place_of_birth":     p.PlaceOfBirth,
		"mrz_type":           p.MRZType,
		"mrz_valid":          p.MRZValid,
		"check_digit_errors": checkDigitErrors,
	}
	if verbose {
		result["confidence"] = p.Confidence
		result["raw_mrz"] = p.RawMRZ
	}
	return result
}

// UnavailableFields lists the personal fields that could not be extracted.
func (p *PassportData) UnavailableFields() []string {
	var missing []string
	check := func(name string, absent bool) {
		if absent {
			missing = append(missing, name)
		}
	}
	check("surname", p.Surname == nil)
	check("given_names", p.GivenNames == nil)
	check("date_of_birth", p.DateOfBirth == nil)
	check("nationality", p.Nationality == nil)
	check("passport_number", p.PassportNumber == nil)
	check("expiry_date", p.ExpiryDate == nil)
	check("sex", p.Sex == nil)
	check("place_of_birth", p.PlaceOfBirth == nil)
	return missing
}

func isoDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// CheckDigitResult is the outcome of one ICAO check digit.
type CheckDigitResult struct {
	FieldName string `json:"field_name"`
	IsValid   bool   `json:"is_valid"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
}

// ValidationResult collects every check digit of one MRZ.
type ValidationResult struct {
	IsValid     bool               `json:"is_valid"`
	MRZType     MRZType            `json:"mrz_type"`
	CheckDigits []CheckDigitResult `json:"check_digits"`
	Warnings    []string           `json:"warnings"`
}

// FailedCheckDigits returns the names of check digits that did not match.
func (r ValidationResult) FailedCheckDigits() []string {
	var failed []string
	for _, cd := range r.CheckDigits {
		if !cd.IsValid {
			failed = append(failed, cd.FieldName)
		}
	}
	return failed
}

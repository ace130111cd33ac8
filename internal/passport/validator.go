// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package passport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Lengths of the raw MRZ text including the line breaks.
const (
	TD3Length = 89 // 2 x 44 + newline
	TD1Length = 92 // 3 x 30 + 2 newlines
)

var (
	checkDigitWeights = [3]int{7, 3, 1}
	validCountryCode  = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Validator verifies ICAO 9303 check digits.
type Validator struct{}

// NewValidator creates a check digit validator.
func NewValidator() *Validator {
	return &Validator{}
}

// CheckDigit computes the ICAO 9303 check digit of s. Digits count as their
// value, letters A-Z as 10-35 and the filler as zero.
func CheckDigit(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += charValue(s[i]) * checkDigitWeights[i%3]
	}
	return sum % 10
}

func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 0
	}
}

// DetectMRZType guesses the layout from the raw text: three lines are TD1,
// two are TD3, and otherwise the total length decides.
func DetectMRZType(raw string) MRZType {
	lines := splitLines(raw)
	switch len(lines) {
	case 3:
		return MRZTypeTD1
	case 2:
		return MRZTypeTD3
	}
	if len(strings.TrimSpace(raw)) >= 90 {
		return MRZTypeTD1
	}
	return MRZTypeTD3
}

// Validate checks every check digit of raw. An empty mrzType is detected
// from the text.
func (v *Validator) Validate(raw string, mrzType MRZType) ValidationResult {
	if strings.TrimSpace(raw) == "" {
		return ValidationResult{
			IsValid:  false,
			MRZType:  MRZTypeTD3,
			Warnings: []string{"Empty MRZ string provided"},
		}
	}
	if mrzType == "" {
		mrzType = DetectMRZType(raw)
	}

	switch mrzType {
	case MRZTypeTD3:
		return v.ValidateTD3(raw)
	case MRZTypeTD1:
		return v.ValidateTD1(raw)
	default:
		return ValidationResult{
			IsValid:  false,
			MRZType:  mrzType,
			Warnings: []string{fmt.Sprintf("MRZ type %s validation not yet supported", mrzType)},
		}
	}
}

// ValidateTD3 checks a two-line passport MRZ.
func (v *Validator) ValidateTD3(raw string) ValidationResult {
	result := ValidationResult{MRZType: MRZTypeTD3}
	lines, ok := fixedLines(raw, 2, td3LineLength)
	if !ok {
		result.Warnings = append(result.Warnings, fmt.Sprintf("TD3 MRZ must have 2 lines of %d characters", td3LineLength))
		return result
	}
	l2 := lines[1]

	result.CheckDigits = []CheckDigitResult{
		checkField("document_number_check_digit", l2[0:9], l2[9]),
		checkField("birth_date_check_digit", l2[13:19], l2[19]),
		checkField("expiry_date_check_digit", l2[21:27], l2[27]),
		checkOptionalField("optional_data_check_digit", l2[28:42], l2[42]),
		checkField("composite_check_digit", l2[0:10]+l2[13:20]+l2[21:43], l2[43]),
	}
	result.IsValid = allValid(result.CheckDigits)
	result.Warnings = append(result.Warnings, countryWarnings(l2[10:13])...)
	return result
}

// ValidateTD1 checks a three-line identity card MRZ.
func (v *Validator) ValidateTD1(raw string) ValidationResult {
	result := ValidationResult{MRZType: MRZTypeTD1}
	lines, ok := fixedLines(raw, 3, td1LineLength)
	if !ok {
		result.Warnings = append(result.Warnings, fmt.Sprintf("TD1 MRZ must have 3 lines of %d characters", td1LineLength))
		return result
	}
	l1, l2 := lines[0], lines[1]

	result.CheckDigits = []CheckDigitResult{
		checkField("document_number_check_digit", l1[5:14], l1[14]),
		checkField("birth_date_check_digit", l2[0:6], l2[6]),
		checkField("expiry_date_check_digit", l2[8:14], l2[14]),
		checkField("composite_check_digit", l1[5:30]+l2[0:7]+l2[8:15]+l2[18:29], l2[29]),
	}
	result.IsValid = allValid(result.CheckDigits)
	result.Warnings = append(result.Warnings, countryWarnings(l2[15:18])...)
	return result
}

// countryWarnings flags a nationality that is not a syntactically valid ICAO
// code. Germany is the one state encoded with fillers.
func countryWarnings(code string) []string {
	if code == "D<<" || validCountryCode.MatchString(code) {
		return nil
	}
	return []string{fmt.Sprintf("Nationality code %q is not a valid ICAO country code", code)}
}

func checkField(name, data string, digit byte) CheckDigitResult {
	expected := strconv.Itoa(CheckDigit(data))
	actual := string(digit)
	return CheckDigitResult{
		FieldName: name,
		IsValid:   expected == actual,
		Expected:  expected,
		Actual:    actual,
	}
}

// checkOptionalField accepts a filler check digit when the field is unused.
func checkOptionalField(name, data string, digit byte) CheckDigitResult {
	if strings.Trim(data, "<") == "" && digit == '<' {
		return CheckDigitResult{FieldName: name, IsValid: true, Expected: "<", Actual: "<"}
	}
	return checkField(name, data, digit)
}

func allValid(results []CheckDigitResult) bool {
	for _, r := range results {
		if !r.IsValid {
			return false
		}
	}
	return true
}

func splitLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// fixedLines splits raw into n lines of the given length. Text without line
// breaks is split by position.
func fixedLines(raw string, n, length int) ([]string, bool) {
	lines := splitLines(raw)
	if len(lines) == 1 && len(lines[0]) == n*length {
		joined := lines[0]
		lines = make([]string, n)
		for i := range lines {
			lines[i] = joined[i*length : (i+1)*length]
		}
	}
	if len(lines) != n {
		return nil, false
	}
	for _, l := range lines {
		if len(l) != length {
			return nil, false
		}
	}
	return lines, true
}

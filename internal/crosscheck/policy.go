// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import "fmt"

// Field identifies one of the standard passport fields compared across sources.
type Field int

const (
	FieldSurname Field = iota
	FieldGivenNames
	FieldDateOfBirth
	FieldNationality
	FieldPassportNumber
	FieldExpiryDate
	FieldSex
	FieldPlaceOfBirth
)

// StandardFields is the fixed comparison order.
var StandardFields = []Field{
	FieldSurname,
	FieldGivenNames,
	FieldDateOfBirth,
	FieldNationality,
	FieldPassportNumber,
	FieldExpiryDate,
	FieldSex,
	FieldPlaceOfBirth,
}

func (f Field) String() string {
	switch f {
	case FieldSurname:
		return "surname"
	case FieldGivenNames:
		return "given_names"
	case FieldDateOfBirth:
		return "date_of_birth"
	case FieldNationality:
		return "nationality"
	case FieldPassportNumber:
		return "passport_number"
	case FieldExpiryDate:
		return "expiry_date"
	case FieldSex:
		return "sex"
	case FieldPlaceOfBirth:
		return "place_of_birth"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Label is the human-readable column label used by renderers.
func (f Field) Label() string {
	switch f {
	case FieldSurname:
		return "Surname"
	case FieldGivenNames:
		return "Given Names"
	case FieldDateOfBirth:
		return "Date of Birth"
	case FieldNationality:
		return "Nationality"
	case FieldPassportNumber:
		return "Passport Number"
	case FieldExpiryDate:
		return "Expiry Date"
	case FieldSex:
		return "Sex"
	case FieldPlaceOfBirth:
		return "Place of Birth"
	default:
		return f.String()
	}
}

// MarshalText lets Field serve as a JSON object key.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses a standard field name.
func (f *Field) UnmarshalText(text []byte) error {
	parsed, ok := ParseField(string(text))
	if !ok {
		return fmt.Errorf("unknown passport field %q", string(text))
	}
	*f = parsed
	return nil
}

// ParseField maps a standard field name back to its Field.
func ParseField(name string) (Field, bool) {
	for _, f := range StandardFields {
		if f.String() == name {
			return f, true
		}
	}
	return 0, false
}

// IsStandard reports whether f is one of StandardFields.
func (f Field) IsStandard() bool {
	return f >= FieldSurname && f <= FieldPlaceOfBirth
}

// IsDate reports whether the field is compared through the date normalizer.
func (f Field) IsDate() bool {
	return f == FieldDateOfBirth || f == FieldExpiryDate
}

// Source names an extraction source as it appears in sources_used.
type Source string

const (
	SourceMRZ Source = "mrz"
	SourceVLM Source = "qwen2-vl"
)

// Severity classifies a discrepancy.
type Severity string

const (
	SeverityCritical      Severity = "critical"
	SeverityWarning       Severity = "warning"
	SeverityInformational Severity = "informational"
)

// Preference says which source wins when both have a value for a field.
type Preference int

const (
	PreferDefault Preference = iota
	PreferMRZ
	PreferVLM
)

// Policy is the single table of per-field rules shared by the cross-validator,
// the discrepancy reporter and the confidence scorer.
//
// Version is bumped whenever any row changes.
type Policy struct {
	Version    int
	Preference Preference
	Severity   Severity
	Critical   bool
}

// PolicyVersion identifies the current policy table.
const PolicyVersion = 1

// PolicyFor returns the rules for a field. Fields outside the standard set
// fall back to MRZ preference, informational severity and standard weight.
func PolicyFor(f Field) Policy {
	switch f {
	case FieldPassportNumber:
		return Policy{PolicyVersion, PreferMRZ, SeverityCritical, true}
	case FieldDateOfBirth:
		return Policy{PolicyVersion, PreferMRZ, SeverityCritical, true}
	case FieldExpiryDate:
		return Policy{PolicyVersion, PreferMRZ, SeverityWarning, false}
	case FieldNationality:
		return Policy{PolicyVersion, PreferMRZ, SeverityWarning, false}
	case FieldSurname:
		return Policy{PolicyVersion, PreferVLM, SeverityWarning, true}
	case FieldGivenNames:
		return Policy{PolicyVersion, PreferVLM, SeverityWarning, true}
	case FieldPlaceOfBirth:
		return Policy{PolicyVersion, PreferVLM, SeverityInformational, false}
	case FieldSex:
		return Policy{PolicyVersion, PreferDefault, SeverityInformational, false}
	default:
		return Policy{PolicyVersion, PreferDefault, SeverityInformational, false}
	}
}

// SelectValue applies the source-preference rule to two raw values.
func SelectValue(f Field, mrzValue, vlmValue *string) *string {
	switch {
	case mrzValue == nil && vlmValue == nil:
		return nil
	case vlmValue == nil:
		return mrzValue
	case mrzValue == nil:
		return vlmValue
	}
	if PolicyFor(f).Preference == PreferVLM {
		return vlmValue
	}
	return mrzValue
}

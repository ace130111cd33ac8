// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CenturyPivot is the two-digit year at or above which YYMMDD dates fall in
// the 1900s. Years below it fall in the 2000s.
const CenturyPivot = 50

var (
	isoDatePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	mrzDatePattern    = regexp.MustCompile(`^\d{6}$`)
	slashDatePattern  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	usDashDatePattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
)

// NormalizeField canonicalizes a text value for equality comparison: trimmed,
// lowercased, diacritics removed and whitespace runs collapsed. Empty input
// yields nil. The field argument is accepted for field-specific rules; none
// exist yet.
func NormalizeField(_ Field, value *string) *string {
	if value == nil {
		return nil
	}
	s := strings.TrimSpace(*value)
	if s == "" {
		return nil
	}
	// Compatibility decomposition can surface new upper-case letters and
	// lowercasing can surface new combining marks, so repeat until stable.
	for range 3 {
		next := foldDiacritics(strings.ToLower(s))
		if next == s {
			break
		}
		s = next
	}
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return nil
	}
	return &s
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeDate converts one of the recognised encodings to YYYY-MM-DD.
// Encodings are tried in order: ISO, YYMMDD, DD/MM/YYYY, MM-DD-YYYY.
// Unrecognised or impossible dates yield nil.
func NormalizeDate(value *string) *string {
	if value == nil {
		return nil
	}
	s := strings.TrimSpace(*value)
	if s == "" {
		return nil
	}

	var layout string
	switch {
	case isoDatePattern.MatchString(s):
		layout = "2006-01-02"
	case mrzDatePattern.MatchString(s):
		s = expandMRZDate(s)
		layout = "2006-01-02"
	case slashDatePattern.MatchString(s):
		layout = "02/01/2006"
	case usDashDatePattern.MatchString(s):
		layout = "01-02-2006"
	default:
		return nil
	}

	parsed, err := time.Parse(layout, s)
	if err != nil || parsed.Year() < 1 {
		return nil
	}
	iso := parsed.Format("2006-01-02")
	return &iso
}

// ParseDate is NormalizeDate returning a time value in UTC.
func ParseDate(value *string) (time.Time, bool) {
	iso := NormalizeDate(value)
	if iso == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", *iso)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// expandMRZDate turns YYMMDD into YYYY-MM-DD using CenturyPivot.
func expandMRZDate(s string) string {
	yy := int(s[0]-'0')*10 + int(s[1]-'0')
	year := 2000 + yy
	if yy >= CenturyPivot {
		year = 1900 + yy
	}
	return fmt.Sprintf("%04d-%s-%s", year, s[2:4], s[4:6])
}

// normalizeForComparison routes date fields through NormalizeDate and all
// others through NormalizeField.
func normalizeForComparison(f Field, value *string) *string {
	if f.IsDate() {
		return NormalizeDate(value)
	}
	return NormalizeField(f, value)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestNormalizeField(t *testing.T) {
	tests := []struct {
		name  string
		input *string
		want  string
	}{
		{"nil", nil, "<nil>"},
		{"empty", strPtr(""), "<nil>"},
		{"whitespace only", strPtr("   \t"), "<nil>"},
		{"lowercases", strPtr("SMITH"), "smith"},
		{"trims", strPtr("  Smith  "), "smith"},
		{"folds diacritics", strPtr("MÜLLER"), "muller"},
		{"folds accents", strPtr("José María"), "jose maria"},
		{"collapses whitespace", strPtr("ANNA   MARIA"), "anna maria"},
		{"compatibility forms", strPtr("ℌans"), "hans"},
		{"combining mark only", strPtr("́"), "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deref(NormalizeField(FieldSurname, tt.input)))
		})
	}
}

func TestNormalizeFieldIsIdempotent(t *testing.T) {
	for _, in := range []string{"SMITH", "Müller-Lüdenscheidt", "İstanbul", "ℌ É", "  o'Brien  "} {
		once := NormalizeField(FieldSurname, strPtr(in))
		twice := NormalizeField(FieldSurname, once)
		assert.Equal(t, deref(once), deref(twice), "input %q", in)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1974-08-12", "1974-08-12"},
		{"740812", "1974-08-12"},
		{"300314", "2030-03-14"},
		{"500101", "1950-01-01"},
		{"491231", "2049-12-31"},
		{"12/08/1974", "1974-08-12"},
		{"08-12-1974", "1974-08-12"},
		{" 1974-08-12 ", "1974-08-12"},
		{"1974-02-30", "<nil>"},
		{"741312", "<nil>"},
		{"0000-01-01", "<nil>"},
		{"01/01/0000", "<nil>"},
		{"0001-01-01", "0001-01-01"},
		{"12 AUG 1974", "<nil>"},
		{"", "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, deref(NormalizeDate(strPtr(tt.input))))
		})
	}
	assert.Nil(t, NormalizeDate(nil))
}

func TestNormalizeDateRoundTrip(t *testing.T) {
	for _, iso := range []string{"1974-08-12", "2030-03-14", "2000-02-29"} {
		once := NormalizeDate(strPtr(iso))
		assert.Equal(t, iso, deref(once))
		assert.Equal(t, iso, deref(NormalizeDate(once)))
	}
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate(strPtr("740812"))
	assert.True(t, ok)
	assert.Equal(t, time.Date(1974, 8, 12, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseDate(strPtr("not a date"))
	assert.False(t, ok)

	_, ok = ParseDate(nil)
	assert.False(t, ok)
}

func TestNormalizeForComparison(t *testing.T) {
	assert.Equal(t, "1974-08-12", deref(normalizeForComparison(FieldDateOfBirth, strPtr("740812"))))
	assert.Equal(t, "smith", deref(normalizeForComparison(FieldSurname, strPtr("SMITH"))))
	assert.True(t, equalOptional(nil, nil))
	assert.False(t, equalOptional(strPtr("a"), nil))
}

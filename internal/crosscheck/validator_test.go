// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passport-crosscheck/internal/passport"
)

func TestValidateField(t *testing.T) {
	v := NewCrossValidator(nil)

	t.Run("case difference agrees", func(t *testing.T) {
		r := v.ValidateField(FieldSurname, strPtr("SMITH"), strPtr("smith"))
		assert.True(t, r.Validated)
		assert.Nil(t, r.Discrepancy)
		assert.Equal(t, "smith", deref(r.FinalValue), "surname prefers VLM")
	})

	t.Run("different spelling disagrees", func(t *testing.T) {
		r := v.ValidateField(FieldSurname, strPtr("SMITH"), strPtr("SMYTH"))
		assert.False(t, r.Validated)
		require.NotNil(t, r.Discrepancy)
		assert.Equal(t, SeverityWarning, r.Discrepancy.Severity)
		assert.Equal(t, "SMYTH", deref(r.Discrepancy.RecommendedValue))
		assert.Equal(t, "SMYTH", deref(r.FinalValue))
	})

	t.Run("date encodings agree", func(t *testing.T) {
		r := v.ValidateField(FieldDateOfBirth, strPtr("740812"), strPtr("1974-08-12"))
		assert.True(t, r.Validated)
		assert.Equal(t, "740812", deref(r.FinalValue), "date of birth prefers MRZ")
	})

	t.Run("critical mismatch", func(t *testing.T) {
		r := v.ValidateField(FieldPassportNumber, strPtr("L898902C3"), strPtr("L898902C8"))
		require.NotNil(t, r.Discrepancy)
		assert.Equal(t, SeverityCritical, r.Discrepancy.Severity)
		assert.Equal(t, "L898902C3", deref(r.Discrepancy.RecommendedValue))
	})

	t.Run("single source accepted", func(t *testing.T) {
		r := v.ValidateField(FieldPlaceOfBirth, nil, strPtr("Zenith"))
		assert.True(t, r.Validated)
		assert.Nil(t, r.Discrepancy)
		assert.Equal(t, "Zenith", deref(r.FinalValue))
	})

	t.Run("both unparseable dates agree", func(t *testing.T) {
		r := v.ValidateField(FieldExpiryDate, strPtr("garbage"), strPtr("also garbage"))
		assert.True(t, r.Validated)
	})
}

func TestCrossValidate(t *testing.T) {
	v := NewCrossValidator(NewDiscrepancyReporter())

	mrz := &passport.RawMRZData{
		Surname:        strPtr("ERIKSSON"),
		GivenNames:     strPtr("ANNA MARIA"),
		DocumentNumber: strPtr("L898902C3"),
		BirthDate:      strPtr("740812"),
		Sex:            strPtr("F"),
	}
	visual := &VisualZoneData{
		Surname:      strPtr("Eriksson"),
		GivenNames:   strPtr("Anna María"),
		DateOfBirth:  strPtr("1974-08-12"),
		Sex:          strPtr("M"),
		PlaceOfBirth: strPtr("Zenith"),
	}

	results := v.CrossValidate(mrz, visual)

	fields := make([]Field, 0, len(results))
	for _, r := range results {
		fields = append(fields, r.FieldName)
	}
	assert.Equal(t, []Field{FieldSurname, FieldGivenNames, FieldDateOfBirth, FieldPassportNumber, FieldSex, FieldPlaceOfBirth}, fields)

	for _, r := range results {
		if r.FieldName == FieldSex {
			require.NotNil(t, r.Discrepancy)
			assert.Equal(t, SeverityInformational, r.Discrepancy.Severity)
			assert.Equal(t, "F", deref(r.Discrepancy.RecommendedValue))
		} else {
			assert.True(t, r.Validated, r.FieldName.String())
		}
	}
}

func TestCrossValidateOneSource(t *testing.T) {
	v := NewCrossValidator(nil)

	assert.Empty(t, v.CrossValidate(nil, nil))

	results := v.CrossValidate(nil, &VisualZoneData{Surname: strPtr("SMITH")})
	require.Len(t, results, 1)
	assert.Nil(t, results[0].MRZValue)
	assert.True(t, results[0].Validated)

	results = v.CrossValidate(&passport.RawMRZData{DocumentNumber: strPtr("X1")}, nil)
	require.Len(t, results, 1)
	assert.Equal(t, FieldPassportNumber, results[0].FieldName)
}

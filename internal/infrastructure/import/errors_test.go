package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowError_Error(t *testing.T) {
	withColumn := NewRowError(5, "percent", ErrCodeImportInvalidFormat, "not a decimal")
	assert.Equal(t, "row 5, column 'percent': not a decimal", withColumn.Error())

	withoutColumn := NewRowError(10, "", ErrCodeImportCSVParsing, "malformed row")
	assert.Equal(t, "row 10: malformed row", withoutColumn.Error())

	withValue := NewRowErrorWithValue(3, "source_role", ErrCodeImportPatternMismatch, "unknown role", "expo42")
	assert.Equal(t, "expo42", withValue.Value)
	assert.Equal(t, 3, withValue.Row)
	assert.Equal(t, "source_role", withValue.Column)
}

func TestErrorCollection_Cap(t *testing.T) {
	ec := NewErrorCollection(3)

	for row := 1; row <= 8; row++ {
		ec.Add(NewRowError(row, "percent", ErrCodeImportValidation, "bad split"))
	}

	// Only the first three are retained but every one is counted.
	assert.Equal(t, 3, ec.Count())
	assert.Equal(t, 8, ec.TotalCount())
	assert.True(t, ec.HasErrors())
	assert.True(t, ec.IsTruncated())
}

func TestErrorCollection_HelperCodes(t *testing.T) {
	ec := NewErrorCollection(20)

	ec.AddRequiredError(1, "name")
	ec.AddTypeError(2, "percent", "decimal", "ten")
	ec.AddFormatError(3, "effective_date", "2026-01-02", "02/01/2026")
	ec.AddLengthError(4, "name", 1, 80)
	ec.AddRangeError(5, "percent", 0, 100)
	ec.AddPatternError(6, "target_role", "role slug", "Bar Back!")
	ec.AddDuplicateError(7, "name", "Server to busser", false)
	ec.AddDuplicateError(8, "name", "Busser pool", true)
	ec.AddReferenceError(9, "source_role", "runner", "role")

	errs := ec.Errors()
	require.Len(t, errs, 9)

	wantCodes := []string{
		ErrCodeImportRequiredField,
		ErrCodeImportInvalidType,
		ErrCodeImportInvalidFormat,
		ErrCodeImportInvalidLength,
		ErrCodeImportInvalidRange,
		ErrCodeImportPatternMismatch,
		ErrCodeImportDuplicateInFile,
		ErrCodeImportDuplicateInDB,
		ErrCodeImportReferenceNotFound,
	}
	for i, want := range wantCodes {
		assert.Equal(t, want, errs[i].Code, "error %d", i)
	}
}

func TestErrorCollection_LengthMessages(t *testing.T) {
	cases := []struct {
		name    string
		min     int
		max     int
		message string
	}{
		{"both bounds", 1, 80, "length must be between 1 and 80"},
		{"max only", 0, 120, "length must be at most 120"},
		{"min only", 5, 0, "length must be at least 5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ec := NewErrorCollection(5)
			ec.AddLengthError(1, "name", tc.min, tc.max)

			errs := ec.Errors()
			require.Len(t, errs, 1)
			assert.Equal(t, tc.message, errs[0].Message)
		})
	}
}

func TestErrorCollection_Summary(t *testing.T) {
	ec := NewErrorCollection(10)

	ec.Add(NewRowError(1, "percent", ErrCodeImportValidation, "bad"))
	ec.Add(NewRowError(2, "percent", ErrCodeImportValidation, "bad"))
	ec.Add(NewRowError(3, "name", ErrCodeImportRequiredField, "missing"))

	summary := ec.ErrorSummary()
	assert.Equal(t, 2, summary[ErrCodeImportValidation])
	assert.Equal(t, 1, summary[ErrCodeImportRequiredField])
}

func TestErrorCollection_Clear(t *testing.T) {
	ec := NewErrorCollection(10)
	ec.Add(NewRowError(1, "name", ErrCodeImportValidation, "bad"))

	ec.Clear()

	assert.False(t, ec.HasErrors())
	assert.Zero(t, ec.Count())
	assert.Zero(t, ec.TotalCount())
}

func TestErrorCollection_String(t *testing.T) {
	ec := NewErrorCollection(10)
	ec.Add(NewRowError(1, "name", ErrCodeImportRequiredField, "field is required"))
	ec.Add(NewRowError(2, "percent", ErrCodeImportInvalidRange, "must be between 0 and 100"))

	s := ec.String()
	assert.Contains(t, s, "2 error(s) found")
	assert.Contains(t, s, "row 1, column 'name'")
	assert.Contains(t, s, "row 2, column 'percent'")
}

func TestValidationResult(t *testing.T) {
	t.Run("counts", func(t *testing.T) {
		vr := NewValidationResult("rules-2026-08")
		vr.SetCounts(40, 37, 3)

		assert.Equal(t, "rules-2026-08", vr.ValidationID)
		assert.Equal(t, 40, vr.TotalRows)
		assert.Equal(t, 37, vr.ValidRows)
		assert.Equal(t, 3, vr.ErrorRows)
		assert.False(t, vr.IsValid())
	})

	t.Run("valid when no error rows", func(t *testing.T) {
		vr := NewValidationResult("rules-2026-08")
		vr.SetCounts(40, 40, 0)
		assert.True(t, vr.IsValid())
	})

	t.Run("preview keeps the first five rows", func(t *testing.T) {
		vr := NewValidationResult("rules-2026-08")
		for i := 0; i < 9; i++ {
			vr.AddPreview(map[string]any{"row": i})
		}
		assert.Len(t, vr.Preview, 5)
	})

	t.Run("carries truncation from the collection", func(t *testing.T) {
		vr := NewValidationResult("rules-2026-08")
		ec := NewErrorCollection(5)
		for row := 0; row < 12; row++ {
			ec.Add(NewRowError(row, "percent", ErrCodeImportValidation, "bad"))
		}

		vr.SetErrors(ec)

		assert.Len(t, vr.Errors, 5)
		assert.True(t, vr.IsTruncated)
		assert.Equal(t, 12, vr.TotalErrors)
	})
}

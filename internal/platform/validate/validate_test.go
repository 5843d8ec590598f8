// Copyright (c) 2026 Wasteland Blues. All rights reserved.

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastelandblues/atlas/internal/platform/apperr"
	"github.com/wastelandblues/atlas/internal/platform/validate"
)

func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "Goodsprings", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

func TestValidator_RangeFloat(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		isValid bool
	}{
		{"lower_bound", 0, true},
		{"upper_bound", 100, true},
		{"midpoint", 45.5, true},
		{"below_range", -0.1, false},
		{"above_range", 100.01, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.RangeFloat("x", tt.value, 0, 100)

			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

func TestValidator_OneOf(t *testing.T) {
	types := []string{"settlement", "dungeon", "landmark", "trader", "faction"}

	v := &validate.Validator{}
	v.OneOf("type", "settlement", types...)
	assert.False(t, v.HasErrors())

	v = &validate.Validator{}
	v.OneOf("type", "casino", types...)
	assert.True(t, v.HasErrors())
}

func TestValidator_CollectsMultipleErrors(t *testing.T) {
	v := &validate.Validator{}
	v.Required("name", "").
		Range("safetyRating", 9, 1, 5).
		RangeFloat("y", 250, 0, 100)

	err := v.Err()
	require.NotNil(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Len(t, ae.Details, 3)
}

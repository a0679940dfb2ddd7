package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type input struct {
	Name  string `json:"name" validate:"required,notblank"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Role  string `json:"role" validate:"omitempty,even"`
}

func TestValidator_Struct(t *testing.T) {
	v := NewValidator()
	v.RegisterValidation("even", "this field must have an even length", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	})

	tests := []struct {
		name string
		in   interface{}
		want []FieldError
	}{
		{name: "valid", in: input{Name: "Kin", Email: "kin@klabu.test", Role: "ab"}},
		{name: "required", in: input{}, want: []FieldError{{"name", "this field is required"}}},
		{name: "blank", in: input{Name: " \t"}, want: []FieldError{{"name", "this field cannot be blank"}}},
		{name: "email", in: input{Name: "Kin", Email: "kin"}, want: []FieldError{{"email", "email must be a valid email address"}}},
		{name: "custom", in: input{Name: "Kin", Role: "abc"}, want: []FieldError{{"role", "this field must have an even length"}}},
		{
			name: "several",
			in:   input{Email: "kin", Role: "a"},
			want: []FieldError{{"name", "this field is required"}, {"email", "email must be a valid email address"}, {"role", "this field must have an even length"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.want, vErr.Fields)
		})
	}

	err := v.Struct(42)
	require.Error(t, err)
	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Goma", CleanString("  Goma\n"))
	assert.Equal(t, "goma", CleanString(" GOMA ", true))
	assert.Equal(t, "", CleanString(" \t "))
}

func TestCeilDiv(t *testing.T) {
	tests := []struct{ n, d, want int }{
		{95, 10, 10},
		{100, 10, 10},
		{101, 10, 11},
		{0, 10, 0},
		{5, 0, 0},
		{-3, 10, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CeilDiv(tt.n, tt.d), "%d/%d", tt.n, tt.d)
	}
}

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

func TestStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Abcd123!", true},
		{"Abc12!", false},
		{"abcd123!", false},
		{"ABCD123!", false},
		{"Abcdefg!", false},
		{"Abcd1234", false},
		{"Äbcd123€", true},
		{"A1!" + strings.Repeat("a", 69), true},
		{"A1!" + strings.Repeat("a", 70), false},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, StrongPassword(tt.password))
		})
	}
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(&signupBody{Email: "a@x.com", Password: "Abcd123!"}))

	err := ValidateStruct(&signupBody{Email: "nope", Password: "weak"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 400, verr.ProblemStatus())
	assert.Equal(t, "invalid email, and 1 other error", verr.ProblemDetail())

	fields := verr.ProblemContext().(map[string]any)["fields"].(FieldErrors)
	assert.Equal(t, []string{"must be a valid email"}, fields["email"])
	require.Len(t, fields["password"], 1)
	assert.Contains(t, fields["password"][0], "8-72 characters")
}

func TestValidateStructRequired(t *testing.T) {
	err := ValidateStruct(&signupBody{Email: "a@x.com"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "password is required", verr.ProblemDetail())
}

func TestValidateStructSummaryFollowsFieldOrder(t *testing.T) {
	err := ValidateStruct(&signupBody{Password: "weak"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email is required, and 1 other error", verr.ProblemDetail())

	fields := verr.ProblemContext().(map[string]any)["fields"].(FieldErrors)
	assert.Equal(t, []string{"is required"}, fields["email"])
	assert.Len(t, fields["password"], 1)
}

package validation

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	passwordMinLen = 8
	passwordMaxLen = 72
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON name.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return StrongPassword(fl.Field().String())
		})
	})
	return validate
}

// StrongPassword reports whether s is 8 to 72 characters long and mixes
// lower case, upper case, digits and symbols.
func StrongPassword(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < passwordMinLen || n > passwordMaxLen {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return lower && upper && digit && special
}

// FieldErrors maps JSON field names to their validation messages.
type FieldErrors map[string][]string

// ValidationError satisfies httpx.DomainProblem and renders as a 400 with
// code ErrValidation and the per-field messages in context.
type ValidationError struct {
	summary string
	fields  FieldErrors
}

func (e *ValidationError) Error() string { return e.summary }

func (e *ValidationError) ProblemCode() string    { return "ErrValidation" }
func (e *ValidationError) ProblemStatus() int     { return http.StatusBadRequest }
func (e *ValidationError) ProblemTitle() string   { return "Validation error" }
func (e *ValidationError) ProblemDetail() string  { return e.summary }
func (e *ValidationError) ProblemTypeURI() string { return "urn:problem:validation-error" }
func (e *ValidationError) ProblemContext() any    { return map[string]any{"fields": e.fields} }

// ValidateStruct checks v against its `validate` tags. The summary names the
// first failing field in declaration order, e.g. "invalid email, and 1 other
// error".
func ValidateStruct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{summary: "validation failed", fields: FieldErrors{}}
	}

	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], message(fe))
	}

	summary := phrase(verrs[0])
	if others := len(verrs) - 1; others > 0 {
		summary = fmt.Sprintf("%s, and %d other error%s", summary, others, plural(others))
	}
	return &ValidationError{summary: summary, fields: fields}
}

func phrase(fe validator.FieldError) string {
	if fe.Tag() == "email" {
		return "invalid email"
	}
	return fe.Field() + " " + message(fe)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "password":
		return fmt.Sprintf("must be %d-%d characters with lower case, upper case, digit and special characters", passwordMinLen, passwordMaxLen)
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

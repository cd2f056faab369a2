package user

import (
	"net/http"

	"github.com/delordemm1/go-auth-sessions/internal/apperr"
)

// Pre-defined domain errors of the auth flows.
var (
	ErrNotFound = &apperr.DomainError{
		Code:       "ErrNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "user not found",
		TypeURI:    "urn:problem:user/err-not-found",
	}

	ErrEmailNotFound = &apperr.DomainError{
		Code:       "ErrEmailNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "no account is registered with this email",
		TypeURI:    "urn:problem:user/err-email-not-found",
	}

	ErrAccountNotFound = &apperr.DomainError{
		Code:       "ErrAccountNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "no password login exists for this email",
		TypeURI:    "urn:problem:user/err-account-not-found",
	}

	ErrEmailExists = &apperr.DomainError{
		Code:       "ErrEmailExists",
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "a user with this email already exists",
		TypeURI:    "urn:problem:user/err-email-exists",
	}

	ErrInvalidCredentials = &apperr.DomainError{
		Code:       "ErrInvalidCredentials",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "invalid email or password",
		TypeURI:    "urn:problem:user/err-invalid-credentials",
	}

	ErrMissingRefreshToken = &apperr.DomainError{
		Code:       "ErrMissingRefreshToken",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "refresh token cookie is missing",
		TypeURI:    "urn:problem:user/err-missing-refresh-token",
	}

	// ErrDataInconsistency reports a local account without a password hash.
	ErrDataInconsistency = &apperr.DomainError{
		Code:       "ErrDataInconsistency",
		HTTPStatus: http.StatusUnprocessableEntity,
		Title:      "Unprocessable Entity",
		Message:    "account data is inconsistent, please contact support",
		TypeURI:    "urn:problem:user/err-data-inconsistency",
	}
)

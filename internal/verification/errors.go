package verification

import (
	"net/http"

	"github.com/delordemm1/go-auth-sessions/internal/apperr"
)

var (
	ErrInvalidFormat = &apperr.DomainError{
		Code:       "ErrInvalidVerificationToken",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "verification token is malformed",
		TypeURI:    "urn:problem:verification/err-invalid-token",
	}

	ErrTokenNotFound = &apperr.DomainError{
		Code:       "ErrVerificationTokenNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "verification token not found",
		TypeURI:    "urn:problem:verification/err-token-not-found",
	}

	ErrTokenExpired = &apperr.DomainError{
		Code:       "ErrVerificationTokenExpired",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "verification token has expired",
		TypeURI:    "urn:problem:verification/err-token-expired",
	}

	ErrInvalidSecret = &apperr.DomainError{
		Code:       "ErrInvalidSecret",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "verification token is invalid",
		TypeURI:    "urn:problem:verification/err-invalid-secret",
	}

	ErrAlreadyVerified = &apperr.DomainError{
		Code:       "ErrEmailAlreadyVerified",
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "email is already verified",
		TypeURI:    "urn:problem:verification/err-already-verified",
	}

	ErrEmailNotFound = &apperr.DomainError{
		Code:       "ErrEmailNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "email address not found",
		TypeURI:    "urn:problem:verification/err-email-not-found",
	}

	ErrTooManyRequests = &apperr.DomainError{
		Code:       "ErrTooManyRequests",
		HTTPStatus: http.StatusTooManyRequests,
		Title:      "Too Many Requests",
		Message:    "a verification email was sent recently, please wait before requesting another",
		TypeURI:    "urn:problem:verification/err-too-many-requests",
	}

	ErrDailyLimitReached = &apperr.DomainError{
		Code:       "ErrDailyLimitReached",
		HTTPStatus: http.StatusTooManyRequests,
		Title:      "Too Many Requests",
		Message:    "daily limit of verification emails reached",
		TypeURI:    "urn:problem:verification/err-daily-limit-reached",
	}

	ErrDeliveryFailed = &apperr.DomainError{
		Code:       "ErrVerificationDeliveryFailed",
		HTTPStatus: http.StatusBadGateway,
		Title:      "Bad Gateway",
		Message:    "verification email could not be sent, please request a new one",
		TypeURI:    "urn:problem:verification/err-delivery-failed",
	}
)

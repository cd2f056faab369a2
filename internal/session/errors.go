package session

import (
	"net/http"

	"github.com/delordemm1/go-auth-sessions/internal/apperr"
)

var (
	// ErrNotFound means the refresh token does not name a live session.
	ErrNotFound = &apperr.DomainError{
		Code:       "ErrSessionNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "session not found",
		TypeURI:    "urn:problem:session/err-not-found",
	}

	// ErrSessionInactive rejects an access token whose session is gone.
	ErrSessionInactive = &apperr.DomainError{
		Code:       "ErrSessionInactive",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "session is no longer active",
		TypeURI:    "urn:problem:session/err-session-inactive",
	}

	ErrTokenRevoked = &apperr.DomainError{
		Code:       "ErrRefreshTokenRevoked",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "refresh token has been revoked",
		TypeURI:    "urn:problem:session/err-token-revoked",
	}

	ErrUserNotFound = &apperr.DomainError{
		Code:       "ErrUserNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "user not found",
		TypeURI:    "urn:problem:session/err-user-not-found",
	}
)

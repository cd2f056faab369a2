package token

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// Kind classifies a verification failure.
type Kind string

const (
	KindExpired          Kind = "Expired"
	KindMalformed        Kind = "MalformedOrBroken"
	KindClaimsInvalid    Kind = "ClaimsInvalid"
	KindSignatureInvalid Kind = "SignatureInvalid"
)

// Error is returned by every failed verification. All kinds surface as 401.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return "token " + string(e.Kind) + ": " + e.cause.Error()
	}
	return "token " + string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrExpired          = &Error{Kind: KindExpired}
	ErrMalformed        = &Error{Kind: KindMalformed}
	ErrClaimsInvalid    = &Error{Kind: KindClaimsInvalid}
	ErrSignatureInvalid = &Error{Kind: KindSignatureInvalid}
)

func (e *Error) ProblemCode() string    { return "ErrToken" + string(e.Kind) }
func (e *Error) ProblemStatus() int     { return http.StatusUnauthorized }
func (e *Error) ProblemTitle() string   { return "Unauthorized" }
func (e *Error) ProblemTypeURI() string { return "urn:problem:token/err-" + string(e.Kind) }
func (e *Error) ProblemContext() any    { return nil }
func (e *Error) ProblemDetail() string {
	switch e.Kind {
	case KindExpired:
		return "token has expired"
	case KindSignatureInvalid:
		return "token signature is invalid"
	case KindClaimsInvalid:
		return "token claims are invalid"
	default:
		return "token is malformed"
	}
}

// classify maps jwt/v5 parse errors onto a Kind. Expired is checked first
// because jwt joins it with ErrTokenInvalidClaims.
func classify(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &Error{Kind: KindExpired, cause: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &Error{Kind: KindSignatureInvalid, cause: err}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &Error{Kind: KindMalformed, cause: err}
	case errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return &Error{Kind: KindClaimsInvalid, cause: err}
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return &Error{Kind: KindSignatureInvalid, cause: err}
	}
	return &Error{Kind: KindMalformed, cause: err}
}

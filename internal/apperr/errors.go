package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// DomainError is a structured, self-describing error shared by every module.
// It carries RFC7807-friendly metadata so httpx can turn any domain error into a
// Problem response without enumerating error types.
type DomainError struct {
	// Code is a stable, machine-readable business code (e.g., "ErrSessionNotFound").
	Code string

	// HTTPStatus is the suggested HTTP status for this error.
	HTTPStatus int

	// Title is a short human summary; empty means StatusText(HTTPStatus).
	Title string

	// Message is primarily for logs. It is used as the public detail when Detail is empty.
	Message string

	// Detail is a safe explanation for clients.
	Detail string

	// TypeURI is an RFC7807 type URI, e.g. "urn:problem:session/err-not-found".
	TypeURI string

	// Context is an optional extension payload for clients.
	Context any

	cause error
}

func (e *DomainError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Message
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is compares by Code so copies made via WithCause still match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy wrapping err.
func (e *DomainError) WithCause(err error) *DomainError {
	if err == nil {
		return e
	}
	cp := *e
	cp.cause = err
	return &cp
}

// WithDetail returns a copy with a client-facing detail message.
func (e *DomainError) WithDetail(detail string) *DomainError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithContext returns a copy carrying an extension payload.
func (e *DomainError) WithContext(ctx any) *DomainError {
	cp := *e
	cp.Context = ctx
	return &cp
}

func (e *DomainError) ProblemCode() string { return e.Code }
func (e *DomainError) ProblemStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}
func (e *DomainError) ProblemTitle() string { return e.Title }
func (e *DomainError) ProblemDetail() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}
func (e *DomainError) ProblemTypeURI() string { return e.TypeURI }
func (e *DomainError) ProblemContext() any    { return e.Context }

var (
	ErrInternal = &DomainError{
		Code:       "ErrInternal",
		HTTPStatus: http.StatusInternalServerError,
		Title:      "Internal Server Error",
		Message:    "internal server error",
		TypeURI:    "urn:problem:err-internal",
	}

	// ErrTransient marks store timeouts and outages. The whole request is safe to retry.
	ErrTransient = &DomainError{
		Code:       "ErrTransient",
		HTTPStatus: http.StatusServiceUnavailable,
		Title:      "Service Unavailable",
		Message:    "a backing store is temporarily unavailable, please retry",
		TypeURI:    "urn:problem:err-transient",
	}
)

// transientMarker lets leaf packages flag their own errors as transient
// without importing this package.
type transientMarker interface {
	Transient() bool
}

// IsTransient reports whether err is a timeout or unavailability of a backing store.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var tm transientMarker
	if errors.As(err, &tm) && tm.Transient() {
		return true
	}
	return pgconn.Timeout(err)
}

// FromStore converts an unexpected store error into ErrTransient or ErrInternal.
// Domain errors pass through untouched.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	if IsTransient(err) {
		return ErrTransient.WithCause(err)
	}
	return ErrInternal.WithCause(err)
}

package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"
)

// Problem is an RFC 7807 problem+json body. Beyond the standard members it
// carries the stable error code clients branch on (ErrTokenExpired,
// ErrSessionLimit...), optional context such as validation fields, and the
// chi request id.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`

	Code      string `json:"code,omitempty"`
	Context   any    `json:"context,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (p *Problem) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	if p.Title != "" {
		return p.Title
	}
	return http.StatusText(p.GetStatus())
}

// GetStatus implements huma.StatusError.
func (p *Problem) GetStatus() int {
	if p.Status == 0 {
		return http.StatusInternalServerError
	}
	return p.Status
}

// ContentType implements huma.ContentTypeFilter.
func (p *Problem) ContentType(ct string) string {
	if ct == "application/json" {
		return "application/problem+json"
	}
	return ct
}

// DomainProblem is satisfied by apperr.DomainError, token.Error and
// validation.ValidationError.
type DomainProblem interface {
	ProblemCode() string
	ProblemStatus() int
	ProblemTitle() string
	ProblemDetail() string
	ProblemTypeURI() string
	ProblemContext() any
}

// ToProblem converts err into a response error. huma status errors pass
// through, DomainProblems are formatted, and anything else becomes a generic
// 500 that does not leak the underlying message.
func ToProblem(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(huma.StatusError); ok {
		return err
	}

	var dp DomainProblem
	if !errors.As(err, &dp) {
		return InternalProblem(ctx, "")
	}

	code, status := dp.ProblemCode(), dp.ProblemStatus()
	typeURI := dp.ProblemTypeURI()
	if typeURI == "" {
		typeURI = "urn:problem:" + toKebab(code)
	}
	title := dp.ProblemTitle()
	if title == "" {
		title = http.StatusText(status)
	}
	detail := dp.ProblemDetail()
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &Problem{
		Type:      typeURI,
		Title:     title,
		Status:    status,
		Detail:    detail,
		Code:      code,
		Context:   dp.ProblemContext(),
		RequestID: middleware.GetReqID(ctx),
	}
}

// InternalProblem builds a 500 problem. An empty detail is replaced by a
// generic message.
func InternalProblem(ctx context.Context, detail string) *Problem {
	if detail == "" {
		detail = "Something went wrong. Please try again later."
	}
	return &Problem{
		Type:      "urn:problem:internal",
		Title:     http.StatusText(http.StatusInternalServerError),
		Status:    http.StatusInternalServerError,
		Detail:    detail,
		Code:      "ErrInternal",
		RequestID: middleware.GetReqID(ctx),
	}
}

// toKebab turns ErrTokenExpired into err-token-expired and
// SESSION_NOT_FOUND into session-not-found.
func toKebab(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		if r == '_' || r == ' ' || r == '-' {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			prevLower = false
			continue
		}
		if unicode.IsUpper(r) && prevLower {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return b.String()
}

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/go-auth-sessions/internal/apperr"
	"github.com/delordemm1/go-auth-sessions/internal/contextx"
	"github.com/delordemm1/go-auth-sessions/internal/httpx"
	"github.com/delordemm1/go-auth-sessions/internal/session"
)

// Authorizer resolves a bearer access token to a live session.
type Authorizer interface {
	Authorize(ctx context.Context, accessToken string) (session.Principal, error)
}

var ErrMissingBearer = &apperr.DomainError{
	Code:       "ErrUnauthorized",
	HTTPStatus: http.StatusUnauthorized,
	Title:      "Unauthorized",
	Message:    "missing or malformed bearer token",
	TypeURI:    "urn:problem:auth/err-unauthorized",
}

// RequireSession is a router-agnostic Huma middleware. It accepts an access
// token only while its session is live and injects the user and session IDs
// into the request context. Failures are written as problem+json.
func RequireSession(auth Authorizer, logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		raw, found := strings.CutPrefix(ctx.Header("Authorization"), "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			writeProblem(ctx, ErrMissingBearer)
			return
		}

		p, err := auth.Authorize(ctx.Context(), strings.TrimSpace(raw))
		if err != nil {
			logger.Info("access token rejected", "err", err)
			writeProblem(ctx, err)
			return
		}

		ctx = huma.WithValue(ctx, contextx.UserIDKey, p.UserID)
		ctx = huma.WithValue(ctx, contextx.SessionIDKey, p.SessionID)
		next(ctx)
	}
}

// ClientMeta records the caller IP and user agent for sessions and audit.
// chi's RealIP runs first, so RemoteAddr already reflects trusted proxy headers.
func ClientMeta(ctx huma.Context, next func(huma.Context)) {
	ip := ctx.RemoteAddr()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ctx = huma.WithValue(ctx, contextx.ClientIPKey, ip)
	ctx = huma.WithValue(ctx, contextx.UserAgentKey, ctx.Header("User-Agent"))
	next(ctx)
}

func writeProblem(ctx huma.Context, err error) {
	p, ok := httpx.ToProblem(ctx.Context(), err).(huma.StatusError)
	if !ok {
		p = httpx.InternalProblem(ctx.Context(), "")
	}
	if p.GetStatus() == http.StatusUnauthorized {
		ctx.SetHeader("WWW-Authenticate", `Bearer realm="api"`)
	}
	ctx.SetHeader("Content-Type", "application/problem+json")
	ctx.SetStatus(p.GetStatus())
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(p)
}

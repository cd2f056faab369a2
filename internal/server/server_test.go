package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/delordemm1/go-auth-sessions/internal/config"
	"github.com/delordemm1/go-auth-sessions/internal/modules/user"
	"github.com/delordemm1/go-auth-sessions/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUsers implements only what the routes under test reach.
type stubUsers struct {
	user.Service
}

func (stubUsers) CurrentAccount(_ context.Context, userID, sessionID string) (*user.CurrentAccount, error) {
	return &user.CurrentAccount{
		Profile:   user.Profile{UserID: userID, Status: user.StatusActive, Email: "ada@example.com", EmailVerified: true},
		SessionID: sessionID,
	}, nil
}

type stubAuthorizer struct{}

func (stubAuthorizer) Authorize(_ context.Context, accessToken string) (session.Principal, error) {
	if accessToken != "good" {
		return session.Principal{}, session.ErrSessionInactive
	}
	return session.Principal{UserID: "user-1", SessionID: "sess-1"}, nil
}

func newTestServer() http.Handler {
	cfg := &config.Config{}
	cfg.Server.WebOrigin = "https://app.example.com"
	cfg.Session.CookieName = "__refresh_token__"
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), stubUsers{}, stubAuthorizer{})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestServer(), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, strings.TrimSpace(rec.Body.String()))
}

func TestCurrentAccountRoute(t *testing.T) {
	h := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body["userId"])
	assert.Equal(t, "sess-1", body["sessionId"])
	assert.Equal(t, "ada@example.com", body["email"])

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec = serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ErrSessionInactive", body["code"])
}

func TestCORSPreflightAllowsWebOrigin(t *testing.T) {
	h := newTestServer()

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/refresh", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/auth/refresh", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = serve(h, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer()
	serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_http_requests_total")
}

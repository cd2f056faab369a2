package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/go-auth-sessions/internal/contextx"
)

// Handler holds the dependencies for the user module's HTTP handlers.
type Handler struct {
	service Service
	cookie  CookieConfig
	logger  *slog.Logger
}

// NewHandler creates a new handler for the user module.
func NewHandler(service Service, cookie CookieConfig, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		cookie:  cookie.withDefaults(),
		logger:  logger,
	}
}

// RegisterRoutes sets up the routing for the user module. requireSession
// guards the routes that need a bearer access token.
func (h *Handler) RegisterRoutes(api huma.API, requireSession func(huma.Context, func(huma.Context))) {
	// --- Authentication Routes ---
	huma.Register(api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/auth/signup",
		Summary:       "Create an account and send a verification email",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"auth"},
	}, h.SignupHandler)

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with email and password",
		Tags:        []string{"auth"},
	}, h.LoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Rotate the refresh cookie and issue a new access token",
		Tags:        []string{"auth"},
	}, h.RefreshHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Summary:       "Revoke the current session",
		DefaultStatus: http.StatusNoContent,
		Tags:          []string{"auth"},
	}, h.LogoutHandler)

	// --- Verification Routes ---
	huma.Register(api, huma.Operation{
		OperationID: "verify-email",
		Method:      http.MethodPost,
		Path:        "/auth/verify-email",
		Summary:     "Redeem an email verification link",
		Tags:        []string{"auth"},
	}, h.VerifyEmailHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "resend-verification",
		Method:        http.MethodPost,
		Path:          "/auth/verify-email/resend",
		Summary:       "Send a new verification link",
		DefaultStatus: http.StatusAccepted,
		Tags:          []string{"auth"},
	}, h.ResendVerificationHandler)

	// --- Profile Routes ---
	huma.Register(api, huma.Operation{
		OperationID: "current-account",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Get the current account",
		Tags:        []string{"auth"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: huma.Middlewares{requireSession},
	}, h.CurrentAccountHandler)
}

func clientMeta(ctx context.Context) ClientMeta {
	ip, ua := contextx.Client(ctx)
	return ClientMeta{IPAddress: ip, UserAgent: ua}
}

package user

import (
	"context"
	"net/http"
	"time"

	"github.com/delordemm1/go-auth-sessions/internal/httpx"
	"github.com/delordemm1/go-auth-sessions/internal/metrics"
	"github.com/delordemm1/go-auth-sessions/internal/validation"
)

// --- DTOs (Data Transfer Objects) ---

type credentialsBody struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
}

// SignupRequest defines the structure for the signup request body.
type SignupRequest struct {
	Body credentialsBody
}

type SignupResponseBody struct {
	UserID  string `json:"userId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SignupResponse is 201 for a new account and 202 when an existing pending
// account was sent a new verification email.
type SignupResponse struct {
	Status int
	Body   SignupResponseBody
}

// LoginRequest defines the structure for the user login request body.
type LoginRequest struct {
	Body struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,max=72"`
	}
}

// AuthBody is returned whenever a session generation is handed out, and by
// login while the email is still pending.
type AuthBody struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	UserID      string `json:"userId,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	TokenType   string `json:"tokenType,omitempty"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
}

// LoginResponse sets the refresh cookie only on success.
type LoginResponse struct {
	Status    int
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      AuthBody
}

// RefreshRequest and LogoutRequest read the refresh token from the raw cookie
// header because the cookie name is configurable.
type RefreshRequest struct {
	Cookie string `header:"Cookie"`
}

type TokenResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      AuthBody
}

type LogoutRequest struct {
	Cookie string `header:"Cookie"`
}

type LogoutResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

const (
	statusAuthenticated       = "authenticated"
	statusPendingVerification = "verification_pending"
)

// --- Mapper ---

func toAuthBody(t *AuthTokens, now time.Time) AuthBody {
	return AuthBody{
		Status:      statusAuthenticated,
		UserID:      t.UserID,
		SessionID:   t.SessionID,
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(t.AccessExpiresAt.Sub(now).Round(time.Second) / time.Second),
	}
}

// --- Handlers ---

// SignupHandler handles the signup endpoint.
func (h *Handler) SignupHandler(ctx context.Context, input *SignupRequest) (*SignupResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	res, err := h.service.Signup(ctx, SignupInput{
		Email:      input.Body.Email,
		Password:   input.Body.Password,
		ClientMeta: clientMeta(ctx),
	})
	metrics.ObserveOperation("signup", err)
	if err != nil {
		h.logger.Warn("signup failed", "err", err)
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &SignupResponse{Status: http.StatusCreated}
	resp.Body.UserID = res.UserID
	resp.Body.Status = statusPendingVerification
	resp.Body.Message = "account created, check your inbox to verify your email"
	if res.Pending {
		resp.Status = http.StatusAccepted
		resp.Body.Message = "a new verification email has been sent"
	}
	return resp, nil
}

// LoginHandler handles the user login endpoint.
func (h *Handler) LoginHandler(ctx context.Context, input *LoginRequest) (*LoginResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	res, err := h.service.Login(ctx, LoginInput{
		Email:      input.Body.Email,
		Password:   input.Body.Password,
		ClientMeta: clientMeta(ctx),
	})
	metrics.ObserveOperation("login", err)
	if err != nil {
		h.logger.Warn("login attempt failed", "err", err)
		return nil, httpx.ToProblem(ctx, err)
	}

	if res.Pending {
		return &LoginResponse{
			Status: http.StatusAccepted,
			Body: AuthBody{
				Status:  statusPendingVerification,
				Message: "email is not verified, a new verification email has been sent",
			},
		}, nil
	}

	return &LoginResponse{
		Status:    http.StatusOK,
		SetCookie: []http.Cookie{h.cookie.issue(res.Tokens.RefreshToken)},
		Body:      toAuthBody(res.Tokens, time.Now()),
	}, nil
}

// RefreshHandler rotates the refresh cookie.
func (h *Handler) RefreshHandler(ctx context.Context, input *RefreshRequest) (*TokenResponse, error) {
	tokens, err := h.service.Refresh(ctx, h.cookie.read(input.Cookie))
	metrics.ObserveOperation("refresh", err)
	if err != nil {
		h.logger.Info("refresh rejected", "err", err)
		return nil, httpx.ToProblem(ctx, err)
	}
	return &TokenResponse{
		SetCookie: h.cookie.issue(tokens.RefreshToken),
		Body:      toAuthBody(tokens, time.Now()),
	}, nil
}

// LogoutHandler revokes the session behind the refresh cookie and clears it.
func (h *Handler) LogoutHandler(ctx context.Context, input *LogoutRequest) (*LogoutResponse, error) {
	err := h.service.Logout(ctx, h.cookie.read(input.Cookie), clientMeta(ctx))
	metrics.ObserveOperation("logout", err)
	if err != nil {
		h.logger.Info("logout rejected", "err", err)
		return nil, httpx.ToProblem(ctx, err)
	}
	return &LogoutResponse{SetCookie: h.cookie.clear()}, nil
}

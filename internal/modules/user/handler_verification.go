package user

import (
	"context"
	"time"

	"github.com/delordemm1/go-auth-sessions/internal/httpx"
	"github.com/delordemm1/go-auth-sessions/internal/metrics"
	"github.com/delordemm1/go-auth-sessions/internal/validation"
)

// --- DTOs ---

// VerifyEmailRequest carries the compound token from the emailed link.
type VerifyEmailRequest struct {
	Token string `query:"token" required:"true"`
}

type ResendVerificationRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email,max=254"`
	}
}

type ResendVerificationResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

// --- Handlers ---

// VerifyEmailHandler redeems the token, sets the refresh cookie and returns an access token.
func (h *Handler) VerifyEmailHandler(ctx context.Context, input *VerifyEmailRequest) (*TokenResponse, error) {
	tokens, err := h.service.VerifyEmail(ctx, input.Token, clientMeta(ctx))
	metrics.ObserveOperation("verify_email", err)
	if err != nil {
		h.logger.Info("email verification rejected", "err", err)
		return nil, httpx.ToProblem(ctx, err)
	}
	return &TokenResponse{
		SetCookie: h.cookie.issue(tokens.RefreshToken),
		Body:      toAuthBody(tokens, time.Now()),
	}, nil
}

// ResendVerificationHandler sends a fresh link. The response does not reveal
// whether the email is registered.
func (h *Handler) ResendVerificationHandler(ctx context.Context, input *ResendVerificationRequest) (*ResendVerificationResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	err := h.service.ResendVerification(ctx, input.Body.Email)
	metrics.ObserveOperation("resend_verification", err)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &ResendVerificationResponse{}
	resp.Body.Message = "if the email is registered and pending, a verification email has been sent"
	return resp, nil
}

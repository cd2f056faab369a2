package user

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/go-auth-sessions/internal/contextx"
	"github.com/delordemm1/go-auth-sessions/internal/httpx"
)

// CurrentAccountResponse is the DTO for the authenticated account.
type CurrentAccountResponse struct {
	Body struct {
		UserID        string `json:"userId"`
		SessionID     string `json:"sessionId"`
		Status        string `json:"status"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
	}
}

func toCurrentAccountResponse(a *CurrentAccount) *CurrentAccountResponse {
	var resp CurrentAccountResponse
	resp.Body.UserID = a.UserID
	resp.Body.SessionID = a.SessionID
	resp.Body.Status = string(a.Status)
	resp.Body.Email = a.Email
	resp.Body.EmailVerified = a.EmailVerified
	return &resp
}

// CurrentAccountHandler relies on the session middleware to have put the
// principal into the context.
func (h *Handler) CurrentAccountHandler(ctx context.Context, _ *struct{}) (*CurrentAccountResponse, error) {
	userID, ok := contextx.UserID(ctx)
	sessionID, _ := contextx.SessionID(ctx)
	if !ok {
		h.logger.Error("user ID not found in context")
		return nil, huma.Error401Unauthorized("invalid authentication context")
	}

	acc, err := h.service.CurrentAccount(ctx, userID, sessionID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toCurrentAccountResponse(acc), nil
}

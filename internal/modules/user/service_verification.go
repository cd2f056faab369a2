package user

import (
	"context"
	"errors"

	"github.com/delordemm1/go-auth-sessions/internal/apperr"
	"github.com/delordemm1/go-auth-sessions/internal/audit"
	"github.com/delordemm1/go-auth-sessions/internal/database"
	"github.com/delordemm1/go-auth-sessions/internal/ratelimit"
	"github.com/delordemm1/go-auth-sessions/internal/session"
	"github.com/delordemm1/go-auth-sessions/internal/verification"
)

// VerifyEmail redeems a verification link. Consuming the token, activating the
// account, opening the first session and the audit record share one
// transaction, so a failure leaves the token usable.
func (s *service) VerifyEmail(ctx context.Context, rawToken string, meta ClientMeta) (*AuthTokens, error) {
	cred, err := verification.ParseCredential(rawToken)
	if err != nil {
		return nil, err
	}

	var (
		consumed verification.Consumed
		issued   session.Issued
	)
	err = s.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		var err error
		consumed, err = s.verifications.ConsumeTx(ctx, tx, cred)
		if err != nil {
			return err
		}
		issued, err = s.sessions.CreateTx(ctx, tx, session.CreateParams{
			UserID:         consumed.UserID,
			EmailAddressID: consumed.EmailAddressID,
			IPAddress:      meta.IPAddress,
			UserAgent:      meta.UserAgent,
		})
		if err != nil {
			return err
		}
		return s.audit(tx).Record(ctx, audit.Event{
			UserID:    consumed.UserID,
			Type:      audit.EmailVerified,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
	})
	if err != nil {
		var de *apperr.DomainError
		if !errors.As(err, &de) {
			s.logger.Error("verify email transaction failed", "token_id", cred.TokenID, "err", err)
		}
		return nil, apperr.FromStore(err)
	}

	tokens, err := s.withAccess(consumed.UserID, issued)
	if err != nil {
		return nil, apperr.ErrInternal.WithCause(err)
	}
	s.logger.Info("email verified", "user_id", consumed.UserID, "session_id", issued.SessionID)
	return tokens, nil
}

// ResendVerification mails a new link to a pending email under the signup
// resend policy. Unknown and already verified addresses succeed silently so
// the endpoint cannot be used to probe for accounts.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	e, err := s.repos(s.conn).FindEmailByAddress(ctx, email)
	if err != nil {
		if errors.Is(err, ErrEmailNotFound) {
			return nil
		}
		s.logger.Error("resend verify: find email failed", "err", err)
		return apperr.FromStore(err)
	}
	if e.IsVerified {
		return nil
	}
	return s.verifications.IssueWithRateLimit(ctx, ratelimit.SignupResend, email, e.UserID, e.ID)
}

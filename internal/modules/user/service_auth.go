package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/delordemm1/go-auth-sessions/internal/apperr"
	"github.com/delordemm1/go-auth-sessions/internal/audit"
	"github.com/delordemm1/go-auth-sessions/internal/database"
	"github.com/delordemm1/go-auth-sessions/internal/ratelimit"
	"github.com/delordemm1/go-auth-sessions/internal/session"
	"github.com/delordemm1/go-auth-sessions/internal/verification"
	"github.com/google/uuid"
)

// Signup creates a pending account with its email, password credential and
// first verification token in one transaction, then mails the token.
// Re-submitting an unverified email resends the verification instead.
func (s *service) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	email := normalizeEmail(in.Email)

	existing, err := s.repos(s.conn).FindEmailByAddress(ctx, email)
	switch {
	case err == nil:
		if existing.IsVerified {
			return nil, ErrEmailExists
		}
		if err := s.verifications.IssueWithRateLimit(ctx, ratelimit.SignupResend, email, existing.UserID, existing.ID); err != nil {
			return nil, err
		}
		s.logger.Info("signup resubmitted for pending email", "user_id", existing.UserID)
		return &SignupResult{UserID: existing.UserID, Pending: true}, nil
	case !errors.Is(err, ErrEmailNotFound):
		s.logger.Error("signup: find email failed", "err", err)
		return nil, apperr.FromStore(err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "err", err)
		return nil, apperr.ErrInternal.WithCause(err)
	}

	userID, emailID, accountID, err := newIDs()
	if err != nil {
		return nil, apperr.ErrInternal.WithCause(err)
	}

	now := s.now()
	var cred verification.Credential
	err = s.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		repo := s.repos(tx)
		if err := repo.CreateUser(ctx, &User{ID: userID, Status: StatusVerificationPending, CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		if err := repo.CreateEmail(ctx, &EmailAddress{ID: emailID, UserID: userID, Email: email, CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		err := repo.CreateAccount(ctx, &Account{
			ID:             accountID,
			UserID:         userID,
			Provider:       ProviderLocal,
			ProviderUserID: email,
			HashedPassword: &hash,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return err
		}
		err = s.audit(tx).Record(ctx, audit.Event{
			UserID:    userID,
			Type:      audit.AccountCreated,
			IPAddress: in.IPAddress,
			UserAgent: in.UserAgent,
		})
		if err != nil {
			return err
		}
		cred, err = s.verifications.IssueTx(ctx, tx, userID, emailID)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrEmailExists) {
			s.logger.Error("signup transaction failed", "err", err)
		}
		return nil, apperr.FromStore(err)
	}

	s.logger.Info("user registered", "user_id", userID)

	if err := s.verifications.Deliver(ctx, ratelimit.SignupResend, email, cred); err != nil {
		return nil, err
	}
	return &SignupResult{UserID: userID}, nil
}

// Login authenticates a verified email with its password and opens a session.
// An unverified email gets a fresh verification token and a Pending result.
func (s *service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := normalizeEmail(in.Email)
	repo := s.repos(s.conn)

	e, err := repo.FindEmailByAddress(ctx, email)
	if err != nil {
		if errors.Is(err, ErrEmailNotFound) {
			if werr := s.passwords.Reject(ctx); werr != nil {
				return nil, apperr.FromStore(werr)
			}
			return nil, err
		}
		s.logger.Error("login: find email failed", "err", err)
		return nil, apperr.FromStore(err)
	}

	if !e.IsVerified {
		if err := s.verifications.IssueWithRateLimit(ctx, ratelimit.LoginResend, email, e.UserID, e.ID); err != nil {
			return nil, err
		}
		s.logger.Info("login pending email verification", "user_id", e.UserID)
		return &LoginResult{Pending: true}, nil
	}

	acc, err := repo.FindLocalAccount(ctx, e.UserID)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			s.logger.Error("login: find account failed", "user_id", e.UserID, "err", err)
		}
		return nil, apperr.FromStore(err)
	}
	if acc.HashedPassword == nil {
		s.logger.Error("local account has no password hash", "user_id", e.UserID, "account_id", acc.ID)
		return nil, ErrDataInconsistency
	}

	ok, err := s.passwords.Verify(ctx, *acc.HashedPassword, in.Password)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.FromStore(err)
		}
		s.logger.Error("stored password hash is unreadable", "user_id", e.UserID, "err", err)
		return nil, ErrDataInconsistency.WithCause(err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	var rehash string
	if s.passwords.NeedsRehash(*acc.HashedPassword) {
		if rehash, err = s.passwords.Hash(in.Password); err != nil {
			s.logger.Warn("password rehash failed", "user_id", e.UserID, "err", err)
			rehash = ""
		}
	}

	var issued session.Issued
	err = s.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		var err error
		issued, err = s.sessions.CreateTx(ctx, tx, session.CreateParams{
			UserID:         e.UserID,
			EmailAddressID: e.ID,
			IPAddress:      in.IPAddress,
			UserAgent:      in.UserAgent,
		})
		if err != nil {
			return err
		}
		if rehash != "" {
			if err := s.repos(tx).UpdatePasswordHash(ctx, acc.ID, rehash); err != nil {
				return err
			}
		}
		return s.audit(tx).Record(ctx, audit.Event{
			UserID:    e.UserID,
			Type:      audit.LoggedIn,
			IPAddress: in.IPAddress,
			UserAgent: in.UserAgent,
		})
	})
	if err != nil {
		s.logger.Error("login transaction failed", "user_id", e.UserID, "err", err)
		return nil, apperr.FromStore(err)
	}

	tokens, err := s.withAccess(e.UserID, issued)
	if err != nil {
		return nil, apperr.ErrInternal.WithCause(err)
	}
	s.logger.Info("user logged in", "user_id", e.UserID, "session_id", issued.SessionID)
	return &LoginResult{Tokens: tokens}, nil
}

// Refresh rotates the refresh token and returns a new access token for the same session.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}
	issued, err := s.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	tokens, err := s.withAccess(issued.UserID, issued)
	if err != nil {
		return nil, apperr.ErrInternal.WithCause(err)
	}
	return tokens, nil
}

// Logout revokes the session bound to refreshToken.
func (s *service) Logout(ctx context.Context, refreshToken string, meta ClientMeta) error {
	if refreshToken == "" {
		return ErrMissingRefreshToken
	}
	return s.sessions.Revoke(ctx, refreshToken, meta.IPAddress, meta.UserAgent)
}

func newIDs() (userID, emailID, accountID string, err error) {
	ids := make([]string, 3)
	for i := range ids {
		id, err := uuid.NewV7()
		if err != nil {
			return "", "", "", fmt.Errorf("generate id: %w", err)
		}
		ids[i] = id.String()
	}
	return ids[0], ids[1], ids[2], nil
}

package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/delordemm1/go-auth-sessions/internal/audit"
	"github.com/delordemm1/go-auth-sessions/internal/database"
	"github.com/delordemm1/go-auth-sessions/internal/password"
	"github.com/delordemm1/go-auth-sessions/internal/session"
	"github.com/delordemm1/go-auth-sessions/internal/token"
	"github.com/delordemm1/go-auth-sessions/internal/verification"
)

// Service defines the auth flows exposed over HTTP. It composes the password
// authenticator, the verification service and the session manager; each flow
// runs its writes in one transaction.
type Service interface {
	Signup(ctx context.Context, in SignupInput) (*SignupResult, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	VerifyEmail(ctx context.Context, rawToken string, meta ClientMeta) (*AuthTokens, error)
	ResendVerification(ctx context.Context, email string) error
	Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, refreshToken string, meta ClientMeta) error
	CurrentAccount(ctx context.Context, userID, sessionID string) (*CurrentAccount, error)
}

// AccessSigner mints access tokens for new session generations.
type AccessSigner interface {
	SignAccess(c token.AccessClaims, expiresAt time.Time) (string, error)
}

// ClientMeta is the raw device information captured for sessions and audit.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

type SignupInput struct {
	Email    string
	Password string
	ClientMeta
}

// SignupResult reports whether a new account was created or an existing
// unverified one was sent a fresh verification email.
type SignupResult struct {
	UserID  string
	Pending bool
}

type LoginInput struct {
	Email    string
	Password string
	ClientMeta
}

// LoginResult carries tokens on success. Pending means the email is not yet
// verified and a new verification email went out instead.
type LoginResult struct {
	Pending bool
	Tokens  *AuthTokens
}

// AuthTokens is one session generation as handed to the client.
type AuthTokens struct {
	UserID           string
	SessionID        string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type CurrentAccount struct {
	Profile
	SessionID string
}

// service implements the Service interface.
type service struct {
	db            database.Transactor
	conn          database.DBTX
	repos         func(database.DBTX) Repository
	audit         func(database.DBTX) audit.Recorder
	passwords     *password.Authenticator
	verifications *verification.Service
	sessions      *session.Manager
	tokens        AccessSigner
	accessTTL     time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// ServiceConfig holds the dependencies for the user service.
type ServiceConfig struct {
	DB            database.Transactor
	Conn          database.DBTX
	Repos         func(database.DBTX) Repository
	Audit         func(database.DBTX) audit.Recorder
	Passwords     *password.Authenticator
	Verifications *verification.Service
	Sessions      *session.Manager
	Tokens        AccessSigner
	AccessTTL     time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
}

// NewService creates a new user service with the given dependencies.
func NewService(cfg ServiceConfig) (Service, error) {
	if cfg.DB == nil || cfg.Passwords == nil || cfg.Verifications == nil || cfg.Sessions == nil || cfg.Tokens == nil {
		return nil, errors.New("user: db, passwords, verifications, sessions and tokens are required")
	}
	if cfg.Repos == nil {
		cfg.Repos = NewRepository
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewRecorder
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &service{
		db:            cfg.DB,
		conn:          cfg.Conn,
		repos:         cfg.Repos,
		audit:         cfg.Audit,
		passwords:     cfg.Passwords,
		verifications: cfg.Verifications,
		sessions:      cfg.Sessions,
		tokens:        cfg.Tokens,
		accessTTL:     cfg.AccessTTL,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}, nil
}

// normalizeEmail is the single identity used for lookups, uniqueness and rate limits.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// withAccess signs the access token that accompanies a new session generation.
func (s *service) withAccess(userID string, is session.Issued) (*AuthTokens, error) {
	expiresAt := s.now().Add(s.accessTTL)
	access, err := s.tokens.SignAccess(token.AccessClaims{Subject: userID, SessionID: is.SessionID}, expiresAt)
	if err != nil {
		return nil, err
	}
	return &AuthTokens{
		UserID:           userID,
		SessionID:        is.SessionID,
		AccessToken:      access,
		AccessExpiresAt:  expiresAt,
		RefreshToken:     is.RefreshToken,
		RefreshExpiresAt: is.ExpiresAt,
	}, nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/delordemm1/go-auth-sessions/internal/apperr"
	"github.com/delordemm1/go-auth-sessions/internal/audit"
	"github.com/delordemm1/go-auth-sessions/internal/database"
	"github.com/delordemm1/go-auth-sessions/internal/metrics"
	"github.com/delordemm1/go-auth-sessions/internal/token"
	"github.com/google/uuid"
)

// Tokens is the part of the JWT signer the manager needs.
type Tokens interface {
	SignRefresh(c token.RefreshClaims, expiresAt time.Time) (string, error)
	VerifyRefresh(raw string) (token.RefreshClaims, error)
	VerifyAccess(raw string) (token.AccessClaims, error)
}

// Denylist remembers refresh token ids that must be rejected until they would
// have expired anyway.
type Denylist interface {
	Deny(ctx context.Context, tokenID string, ttl time.Duration) error
	IsDenied(ctx context.Context, tokenID string) (bool, error)
}

// Config controls the session cap and refresh lifetime.
type Config struct {
	DB       database.Transactor
	// Conn serves reads outside a transaction, normally the pool itself.
	Conn     database.DBTX
	Repos    func(database.DBTX) Repository
	Audit    func(database.DBTX) audit.Recorder
	Tokens   Tokens
	Denylist Denylist
	Logger   *slog.Logger

	// Limit is the maximum number of live sessions per account. Default: 5.
	Limit int
	// RefreshTTL is the lifetime of a refresh token and its session row.
	// Default: 30 days.
	RefreshTTL time.Duration

	Now func() time.Time
}

// Manager owns the session lifecycle: capped creation, refresh rotation,
// logout and access token authorization.
type Manager struct {
	db       database.Transactor
	conn     database.DBTX
	repos    func(database.DBTX) Repository
	audit    func(database.DBTX) audit.Recorder
	tokens   Tokens
	denylist Denylist
	logger   *slog.Logger
	limit    int
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.DB == nil || cfg.Tokens == nil || cfg.Denylist == nil {
		return nil, errors.New("session: db, tokens and denylist are required")
	}
	if cfg.Repos == nil {
		cfg.Repos = NewRepository
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewRecorder
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		db:       cfg.DB,
		conn:     cfg.Conn,
		repos:    cfg.Repos,
		audit:    cfg.Audit,
		tokens:   cfg.Tokens,
		denylist: cfg.Denylist,
		logger:   cfg.Logger,
		limit:    cfg.Limit,
		ttl:      cfg.RefreshTTL,
		now:      cfg.Now,
	}, nil
}

// CreateParams describes the device a new session is opened for.
type CreateParams struct {
	UserID         string
	EmailAddressID string
	IPAddress      string
	UserAgent      string
}

// Issued is a freshly minted or rotated session generation.
type Issued struct {
	UserID         string
	SessionID      string
	RefreshToken   string
	RefreshTokenID string
	ExpiresAt      time.Time
	// Evicted is the id of the session revoked to make room, if any.
	Evicted string
}

// Principal is the identity behind a valid access token.
type Principal struct {
	UserID    string
	SessionID string
}

// CreateTx opens a session inside tx. When the account already holds Limit
// live sessions the least recently used one is revoked first, so the count
// never exceeds Limit after commit.
func (m *Manager) CreateTx(ctx context.Context, tx database.DBTX, p CreateParams) (Issued, error) {
	sid, err := uuid.NewV7()
	if err != nil {
		return Issued{}, fmt.Errorf("generate session id: %w", err)
	}
	jti := uuid.NewString()
	now := m.now()
	expiresAt := now.Add(m.ttl)

	refresh, err := m.tokens.SignRefresh(token.RefreshClaims{
		Subject:   p.UserID,
		SessionID: sid.String(),
		TokenID:   jti,
	}, expiresAt)
	if err != nil {
		return Issued{}, fmt.Errorf("sign refresh token: %w", err)
	}

	repo := m.repos(tx)
	if err := repo.LockUser(ctx, p.UserID); err != nil {
		return Issued{}, err
	}

	active, err := repo.ListActiveIDs(ctx, p.UserID)
	if err != nil {
		return Issued{}, err
	}

	var evicted string
	if len(active) >= m.limit {
		evicted = active[0]
		if err := repo.Revoke(ctx, evicted, now); err != nil {
			return Issued{}, fmt.Errorf("evict session %s: %w", evicted, err)
		}
	}

	err = repo.Insert(ctx, &Session{
		ID:             sid.String(),
		UserID:         p.UserID,
		EmailAddressID: p.EmailAddressID,
		RefreshTokenID: jti,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
		IPAddress:      p.IPAddress,
		UserAgent:      p.UserAgent,
	})
	if err != nil {
		return Issued{}, err
	}

	if evicted != "" {
		metrics.SessionEvicted()
		m.logger.Info("session evicted", "user_id", p.UserID, "session_id", evicted)
	}

	return Issued{
		UserID:         p.UserID,
		SessionID:      sid.String(),
		RefreshToken:   refresh,
		RefreshTokenID: jti,
		ExpiresAt:      expiresAt,
		Evicted:        evicted,
	}, nil
}

// Create runs CreateTx in its own transaction.
func (m *Manager) Create(ctx context.Context, p CreateParams) (Issued, error) {
	var out Issued
	err := m.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		var err error
		out, err = m.CreateTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return Issued{}, apperr.FromStore(err)
	}
	return out, nil
}

// Revoke logs out the session bound to refreshToken and records LOGGED_OUT in
// the same transaction. The jti is denylisted after commit.
func (m *Manager) Revoke(ctx context.Context, refreshToken, ipAddress, userAgent string) error {
	claims, err := m.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	err = m.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		repo := m.repos(tx)
		s, err := repo.FindByRefreshForUpdate(ctx, claims.SessionID, claims.Subject, claims.TokenID)
		if err != nil {
			return err
		}
		if err := repo.Revoke(ctx, s.ID, m.now()); err != nil {
			return err
		}
		return m.audit(tx).Record(ctx, audit.Event{
			UserID:    claims.Subject,
			Type:      audit.LoggedOut,
			IPAddress: ipAddress,
			UserAgent: userAgent,
		})
	})
	if err != nil {
		return apperr.FromStore(err)
	}

	m.deny(ctx, claims)
	return nil
}

// Refresh rotates the session behind refreshToken to a new jti. The presented
// token is single-use: once rotated it is denylisted and any replay fails.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (Issued, error) {
	claims, err := m.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return Issued{}, err
	}

	jti := uuid.NewString()
	now := m.now()
	expiresAt := now.Add(m.ttl)
	refresh, err := m.tokens.SignRefresh(token.RefreshClaims{
		Subject:   claims.Subject,
		SessionID: claims.SessionID,
		TokenID:   jti,
	}, expiresAt)
	if err != nil {
		return Issued{}, fmt.Errorf("sign refresh token: %w", err)
	}

	err = m.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		return m.repos(tx).Rotate(ctx, claims.SessionID, claims.Subject, claims.TokenID, jti, expiresAt, now)
	})
	if err != nil {
		return Issued{}, apperr.FromStore(err)
	}

	m.deny(ctx, claims)
	return Issued{
		UserID:         claims.Subject,
		SessionID:      claims.SessionID,
		RefreshToken:   refresh,
		RefreshTokenID: jti,
		ExpiresAt:      expiresAt,
	}, nil
}

// Authorize resolves an access token to its principal. The token must verify
// and its session must still be live.
func (m *Manager) Authorize(ctx context.Context, accessToken string) (Principal, error) {
	claims, err := m.tokens.VerifyAccess(accessToken)
	if err != nil {
		return Principal{}, err
	}

	if _, err := m.repos(m.conn).FindActive(ctx, claims.SessionID, claims.Subject, m.now()); err != nil {
		return Principal{}, apperr.FromStore(err)
	}
	return Principal{UserID: claims.Subject, SessionID: claims.SessionID}, nil
}

func (m *Manager) verifyRefresh(ctx context.Context, raw string) (token.RefreshClaims, error) {
	claims, err := m.tokens.VerifyRefresh(raw)
	if err != nil {
		return token.RefreshClaims{}, err
	}

	denied, err := m.denylist.IsDenied(ctx, claims.TokenID)
	if err != nil {
		return token.RefreshClaims{}, apperr.FromStore(err)
	}
	if denied {
		metrics.DenylistHit()
		return token.RefreshClaims{}, ErrTokenRevoked
	}
	return claims, nil
}

// deny runs after commit. The row is already authoritative, so a failed write
// is logged rather than returned.
func (m *Manager) deny(ctx context.Context, claims token.RefreshClaims) {
	ttl := m.ttl
	if !claims.ExpiresAt.IsZero() {
		ttl = claims.ExpiresAt.Sub(m.now())
	}
	if err := m.denylist.Deny(ctx, claims.TokenID, ttl); err != nil {
		m.logger.Error("denylist write failed", "session_id", claims.SessionID, "err", err)
	}
}

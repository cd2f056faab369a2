package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/go-auth-sessions/internal/database"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// Session is one authenticated device. RefreshTokenID is the jti of the only
// refresh token currently accepted for it.
type Session struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	EmailAddressID string    `db:"email_address_id"`
	RefreshTokenID string    `db:"refresh_token_id"`
	IsRevoked      bool      `db:"is_revoked"`
	ExpiresAt      time.Time `db:"expires_at"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	IPAddress      string    `db:"-"`
	UserAgent      string    `db:"-"`
}

var sessionColumns = []string{
	"id", "user_id", "email_address_id", "refresh_token_id", "is_revoked", "expires_at", "created_at", "updated_at",
}

// Repository is the sessions table as seen from one transaction.
type Repository interface {
	// LockUser takes a row lock on the owning user so concurrent session
	// creation for one account serializes.
	LockUser(ctx context.Context, userID string) error
	// ListActiveIDs returns non-revoked session ids, least recently used first.
	ListActiveIDs(ctx context.Context, userID string) ([]string, error)
	Insert(ctx context.Context, s *Session) error
	Revoke(ctx context.Context, id string, at time.Time) error
	// FindByRefreshForUpdate locks the live session bound to refreshTokenID.
	FindByRefreshForUpdate(ctx context.Context, id, userID, refreshTokenID string) (*Session, error)
	FindActive(ctx context.Context, id, userID string, now time.Time) (*Session, error)
	// Rotate swaps the accepted jti. It fails with ErrNotFound unless oldTokenID
	// is still current and the session is live.
	Rotate(ctx context.Context, id, userID, oldTokenID, newTokenID string, expiresAt, now time.Time) error
}

type postgresRepository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository binds a Postgres repository to db, usually a transaction.
func NewRepository(db database.DBTX) Repository {
	return &postgresRepository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *postgresRepository) LockUser(ctx context.Context, userID string) error {
	sql, args, err := r.psql.Select("id").
		From("users").
		Where(squirrel.Eq{"id": userID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return err
	}

	var id string
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound.WithCause(err)
		}
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListActiveIDs(ctx context.Context, userID string) ([]string, error) {
	sql, args, err := r.psql.Select("id").
		From("sessions").
		Where(squirrel.Eq{"user_id": userID, "is_revoked": false}).
		OrderBy("updated_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := pgxscan.Select(ctx, r.db, &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}

func (r *postgresRepository) Insert(ctx context.Context, s *Session) error {
	sql, args, err := r.psql.Insert("sessions").
		Columns("id", "user_id", "email_address_id", "refresh_token_id", "is_revoked",
			"ip_address", "user_agent", "expires_at", "created_at", "updated_at").
		Values(s.ID, s.UserID, s.EmailAddressID, s.RefreshTokenID, s.IsRevoked,
			nullable(s.IPAddress), nullable(s.UserAgent), s.ExpiresAt, s.CreatedAt, s.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *postgresRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	sql, args, err := r.psql.Update("sessions").
		Set("is_revoked", true).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) FindByRefreshForUpdate(ctx context.Context, id, userID, refreshTokenID string) (*Session, error) {
	sql, args, err := r.psql.Select(sessionColumns...).
		From("sessions").
		Where(squirrel.Eq{
			"id":               id,
			"user_id":          userID,
			"refresh_token_id": refreshTokenID,
			"is_revoked":       false,
		}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sql, args, ErrNotFound)
}

func (r *postgresRepository) FindActive(ctx context.Context, id, userID string, now time.Time) (*Session, error) {
	sql, args, err := r.psql.Select(sessionColumns...).
		From("sessions").
		Where(squirrel.Eq{"id": id, "user_id": userID, "is_revoked": false}).
		Where(squirrel.Gt{"expires_at": now}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sql, args, ErrSessionInactive)
}

func (r *postgresRepository) Rotate(ctx context.Context, id, userID, oldTokenID, newTokenID string, expiresAt, now time.Time) error {
	sql, args, err := r.psql.Update("sessions").
		Set("refresh_token_id", newTokenID).
		Set("expires_at", expiresAt).
		Set("updated_at", now).
		Where(squirrel.Eq{
			"id":               id,
			"user_id":          userID,
			"refresh_token_id": oldTokenID,
			"is_revoked":       false,
		}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) get(ctx context.Context, sql string, args []any, notFound error) (*Session, error) {
	var s Session
	if err := pgxscan.Get(ctx, r.db, &s, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

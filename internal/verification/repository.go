package verification

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/go-auth-sessions/internal/database"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// Repository persists verification tokens and the email/user state they flip.
type Repository interface {
	DeleteByUser(ctx context.Context, userID string, typ TokenType) error
	Insert(ctx context.Context, t *Token) error
	// FindForUpdate locks the token row so concurrent consumes serialize.
	FindForUpdate(ctx context.Context, id string, typ TokenType) (*Token, error)
	Delete(ctx context.Context, id string) error
	FindEmail(ctx context.Context, emailAddressID string) (*EmailAddress, error)
	MarkEmailVerified(ctx context.Context, emailAddressID string) error
	ActivateUser(ctx context.Context, userID string) error
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository binds a repository to db, usually a transaction.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *repository) DeleteByUser(ctx context.Context, userID string, typ TokenType) error {
	sql, args, err := r.psql.Delete("tokens").
		Where(squirrel.Eq{"user_id": userID, "type": string(typ)}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *repository) Insert(ctx context.Context, t *Token) error {
	sql, args, err := r.psql.Insert("tokens").
		Columns("id", "user_id", "email_address_id", "hashed_secret", "type", "expires_at", "created_at").
		Values(t.ID, t.UserID, t.EmailAddressID, t.HashedSecret, string(t.Type), t.ExpiresAt, t.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *repository) FindForUpdate(ctx context.Context, id string, typ TokenType) (*Token, error) {
	sql, args, err := r.psql.Select("id", "user_id", "email_address_id", "hashed_secret", "type", "expires_at", "created_at").
		From("tokens").
		Where(squirrel.Eq{"id": id, "type": string(typ)}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, err
	}

	var t Token
	if err := pgxscan.Get(ctx, r.db, &t, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound.WithCause(err)
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.psql.Delete("tokens").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *repository) FindEmail(ctx context.Context, emailAddressID string) (*EmailAddress, error) {
	sql, args, err := r.psql.Select("id", "user_id", "email", "is_verified").
		From("email_addresses").
		Where(squirrel.Eq{"id": emailAddressID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var e EmailAddress
	if err := pgxscan.Get(ctx, r.db, &e, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmailNotFound.WithCause(err)
		}
		return nil, err
	}
	return &e, nil
}

// MarkEmailVerified flips is_verified once. A second call reports ErrAlreadyVerified.
func (r *repository) MarkEmailVerified(ctx context.Context, emailAddressID string) error {
	sql, args, err := r.psql.Update("email_addresses").
		Set("is_verified", true).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": emailAddressID, "is_verified": false}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyVerified
	}
	return nil
}

func (r *repository) ActivateUser(ctx context.Context, userID string) error {
	sql, args, err := r.psql.Update("users").
		Set("status", "active").
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": userID, "status": "verification_pending"}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

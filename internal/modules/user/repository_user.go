package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// FindEmailByAddress looks up an email row by its normalized address.
// It returns ErrEmailNotFound if none exists.
func (r *repository) FindEmailByAddress(ctx context.Context, email string) (*EmailAddress, error) {
	query, args, err := r.psql.Select("id", "user_id", "email", "is_verified", "created_at", "updated_at").
		From("email_addresses").
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var e EmailAddress
	if err := pgxscan.Get(ctx, r.db, &e, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmailNotFound.WithCause(err)
		}
		return nil, err
	}
	return &e, nil
}

// CreateUser inserts a new user record.
func (r *repository) CreateUser(ctx context.Context, u *User) error {
	query, args, err := r.psql.Insert("users").
		Columns("id", "status", "created_at", "updated_at").
		Values(u.ID, string(u.Status), u.CreatedAt, u.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// CreateEmail inserts an email address. A concurrent signup for the same
// address surfaces as ErrEmailExists.
func (r *repository) CreateEmail(ctx context.Context, e *EmailAddress) error {
	query, args, err := r.psql.Insert("email_addresses").
		Columns("id", "user_id", "email", "is_verified", "created_at", "updated_at").
		Values(e.ID, e.UserID, e.Email, e.IsVerified, e.CreatedAt, e.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return mapUniqueViolation(err, "insert email")
	}
	return nil
}

func (r *repository) CreateAccount(ctx context.Context, a *Account) error {
	query, args, err := r.psql.Insert("accounts").
		Columns("id", "user_id", "provider", "provider_user_id", "hashed_password", "created_at", "updated_at").
		Values(a.ID, a.UserID, a.Provider, a.ProviderUserID, a.HashedPassword, a.CreatedAt, a.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return mapUniqueViolation(err, "insert account")
	}
	return nil
}

// FindLocalAccount returns the password credential of a user.
func (r *repository) FindLocalAccount(ctx context.Context, userID string) (*Account, error) {
	query, args, err := r.psql.Select("id", "user_id", "provider", "provider_user_id", "hashed_password", "created_at", "updated_at").
		From("accounts").
		Where(squirrel.Eq{"user_id": userID, "provider": ProviderLocal}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var a Account
	if err := pgxscan.Get(ctx, r.db, &a, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound.WithCause(err)
		}
		return nil, err
	}
	return &a, nil
}

// UpdatePasswordHash replaces a stored hash, used to upgrade legacy hashes on login.
func (r *repository) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	query, args, err := r.psql.Update("accounts").
		Set("hashed_password", hash).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": accountID}).
		ToSql()
	if err != nil {
		return err
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// FindProfile joins a user with its first registered email address.
func (r *repository) FindProfile(ctx context.Context, userID string) (*Profile, error) {
	query, args, err := r.psql.Select("u.id", "u.status", "e.email", "e.is_verified").
		From("users u").
		Join("email_addresses e ON e.user_id = u.id").
		Where(squirrel.Eq{"u.id": userID}).
		OrderBy("e.created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := pgxscan.Get(ctx, r.db, &p, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &p, nil
}

func mapUniqueViolation(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrEmailExists.WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

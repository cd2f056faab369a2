package user

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/go-auth-sessions/internal/database"
)

// Repository defines the database operations of the user module.
// It is bound to one DBTX, so the same code runs on the pool or inside a
// transaction.
type Repository interface {
	FindEmailByAddress(ctx context.Context, email string) (*EmailAddress, error)
	CreateUser(ctx context.Context, u *User) error
	CreateEmail(ctx context.Context, e *EmailAddress) error
	CreateAccount(ctx context.Context, a *Account) error
	FindLocalAccount(ctx context.Context, userID string) (*Account, error)
	UpdatePasswordHash(ctx context.Context, accountID, hash string) error
	FindProfile(ctx context.Context, userID string) (*Profile, error)
}

// repository implements the Repository interface using pgx and squirrel.
type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a new user repository with the given database connection.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

package user

import (
	"time"
)

// Status is the lifecycle state of an account holder.
type Status string

const (
	StatusVerificationPending Status = "verification_pending"
	StatusActive              Status = "active"
)

// ProviderLocal marks a password credential.
const ProviderLocal = "LOCAL"

// User is the identity root. Everything else in this module hangs off its ID.
type User struct {
	ID        string    `db:"id"`
	Status    Status    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type EmailAddress struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Email      string    `db:"email"`
	IsVerified bool      `db:"is_verified"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Account is a login credential. HashedPassword is nil only when the row is
// inconsistent; a local account is always created with a hash.
type Account struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	Provider       string    `db:"provider"`
	ProviderUserID string    `db:"provider_user_id"`
	HashedPassword *string   `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Profile is the read model behind GET /auth/me.
type Profile struct {
	UserID        string `db:"id"`
	Status        Status `db:"status"`
	Email         string `db:"email"`
	EmailVerified bool   `db:"is_verified"`
}

package verification

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenType distinguishes token purposes sharing the tokens table.
type TokenType string

const EmailVerification TokenType = "EMAIL_VERIFICATION"

// secretBytes is the entropy of a raw verification secret (256 bits).
const secretBytes = 32

// Token is a stored verification token. Only the HMAC of the secret is kept.
type Token struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	EmailAddressID string    `db:"email_address_id"`
	HashedSecret   string    `db:"hashed_secret"`
	Type           TokenType `db:"type"`
	ExpiresAt      time.Time `db:"expires_at"`
	CreatedAt      time.Time `db:"created_at"`
}

// EmailAddress is the part of an email row the verification flow touches.
type EmailAddress struct {
	ID         string `db:"id"`
	UserID     string `db:"user_id"`
	Email      string `db:"email"`
	IsVerified bool   `db:"is_verified"`
}

// Credential is the compound "tokenId.secret" value delivered to the user.
type Credential struct {
	TokenID string
	Secret  string
}

func (c Credential) String() string {
	return c.TokenID + "." + c.Secret
}

// ParseCredential splits and structurally validates a compound credential
// without touching storage.
func ParseCredential(raw string) (Credential, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || id == "" || secret == "" {
		return Credential{}, ErrInvalidFormat
	}
	if _, err := uuid.Parse(id); err != nil {
		return Credential{}, ErrInvalidFormat.WithCause(err)
	}
	if len(secret) != 2*secretBytes {
		return Credential{}, ErrInvalidFormat
	}
	if _, err := hex.DecodeString(secret); err != nil {
		return Credential{}, ErrInvalidFormat.WithCause(err)
	}
	return Credential{TokenID: id, Secret: secret}, nil
}

func newSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func digest(key []byte, secret string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// secretMatches compares digests in constant time.
func secretMatches(key []byte, secret, stored string) bool {
	return hmac.Equal([]byte(digest(key, secret)), []byte(stored))
}

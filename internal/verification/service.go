package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/delordemm1/go-auth-sessions/internal/apperr"
	"github.com/delordemm1/go-auth-sessions/internal/database"
	"github.com/delordemm1/go-auth-sessions/internal/ratelimit"
	"github.com/google/uuid"
)

// Limiter is the subset of the rate-limit counter used for resends.
type Limiter interface {
	TryAcquire(ctx context.Context, key string) (bool, error)
	Bump(ctx context.Context, key string, ttl time.Duration, ceiling int64) (int64, error)
	MarkCooldown(ctx context.Context, key string, ttl time.Duration) error
}

// Deliverer sends the verification credential out of band.
type Deliverer interface {
	DeliverVerification(ctx context.Context, email, credential string) error
}

// Config holds the dependencies and policy of the verification service.
type Config struct {
	DB        database.Transactor
	Repos     func(database.DBTX) Repository
	Limiter   Limiter
	Deliverer Deliverer
	Logger    *slog.Logger

	// HMACKey is the process-wide key for secret digests.
	HMACKey []byte
	// TTL is how long an issued token stays valid.
	TTL time.Duration

	MaxDailyResends int64
	ResendCooldown  time.Duration
	ResendWindow    time.Duration

	Now func() time.Time
}

// Service issues and consumes single-use email verification tokens.
type Service struct {
	db        database.Transactor
	repos     func(database.DBTX) Repository
	limiter   Limiter
	deliverer Deliverer
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func NewService(cfg Config) (*Service, error) {
	if len(cfg.HMACKey) == 0 {
		return nil, errors.New("verification: hmac key is required")
	}
	if cfg.DB == nil || cfg.Limiter == nil || cfg.Deliverer == nil {
		return nil, errors.New("verification: db, limiter and deliverer are required")
	}
	if cfg.Repos == nil {
		cfg.Repos = NewRepository
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.MaxDailyResends <= 0 {
		cfg.MaxDailyResends = 5
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = 60 * time.Second
	}
	if cfg.ResendWindow <= 0 {
		cfg.ResendWindow = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		db:        cfg.DB,
		repos:     cfg.Repos,
		limiter:   cfg.Limiter,
		deliverer: cfg.Deliverer,
		logger:    cfg.Logger,
		cfg:       cfg,
		now:       cfg.Now,
	}, nil
}

// IssueTx replaces any live email-verification token of the user with a new
// one inside tx and returns the compound credential for delivery.
func (s *Service) IssueTx(ctx context.Context, tx database.DBTX, userID, emailAddressID string) (Credential, error) {
	secret, err := newSecret()
	if err != nil {
		return Credential{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Credential{}, fmt.Errorf("generate token id: %w", err)
	}

	repo := s.repos(tx)
	if err := repo.DeleteByUser(ctx, userID, EmailVerification); err != nil {
		return Credential{}, fmt.Errorf("delete previous tokens: %w", err)
	}

	now := s.now()
	t := &Token{
		ID:             id.String(),
		UserID:         userID,
		EmailAddressID: emailAddressID,
		HashedSecret:   digest(s.cfg.HMACKey, secret),
		Type:           EmailVerification,
		ExpiresAt:      now.Add(s.cfg.TTL),
		CreatedAt:      now,
	}
	if err := repo.Insert(ctx, t); err != nil {
		return Credential{}, fmt.Errorf("insert token: %w", err)
	}
	return Credential{TokenID: t.ID, Secret: secret}, nil
}

// IssueWithRateLimit gates issuance behind the cool-down flag and the rolling
// resend counter of policy, commits a fresh token, delivers it and only then
// starts the cool-down. A delivery failure leaves the committed token in place
// and returns ErrDeliveryFailed; the next attempt goes through the same gate.
func (s *Service) IssueWithRateLimit(ctx context.Context, policy ratelimit.ResendPolicy, email, userID, emailAddressID string) error {
	cooldownKey := ratelimit.KeyFor(policy.Cooldown, email)

	allowed, err := s.limiter.TryAcquire(ctx, cooldownKey)
	if err != nil {
		return apperr.FromStore(err)
	}
	if !allowed {
		return ErrTooManyRequests
	}

	if _, err := s.limiter.Bump(ctx, ratelimit.KeyFor(policy.Counter, email), s.cfg.ResendWindow, s.cfg.MaxDailyResends); err != nil {
		if errors.Is(err, ratelimit.ErrLimitExceeded) {
			return ErrDailyLimitReached
		}
		return apperr.FromStore(err)
	}

	var cred Credential
	err = s.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		var err error
		cred, err = s.IssueTx(ctx, tx, userID, emailAddressID)
		return err
	})
	if err != nil {
		s.logger.Error("issue verification token failed", "user_id", userID, "err", err)
		return apperr.FromStore(err)
	}

	return s.Deliver(ctx, policy, email, cred)
}

// Deliver sends an already committed credential and starts the cool-down of
// policy once the message is out.
func (s *Service) Deliver(ctx context.Context, policy ratelimit.ResendPolicy, email string, cred Credential) error {
	if err := s.deliverer.DeliverVerification(ctx, email, cred.String()); err != nil {
		s.logger.Error("verification email delivery failed", "email", email, "policy", policy.Name, "err", err)
		return ErrDeliveryFailed.WithCause(err)
	}

	if err := s.limiter.MarkCooldown(ctx, ratelimit.KeyFor(policy.Cooldown, email), s.cfg.ResendCooldown); err != nil {
		// The email is already out, so the request still succeeds.
		s.logger.Warn("could not start verification cool-down", "email", email, "policy", policy.Name, "err", err)
	}
	return nil
}

// Consumed identifies the account and email a token was issued for.
type Consumed struct {
	UserID         string
	EmailAddressID string
	Email          string
}

// ConsumeTx redeems cred inside tx: it locks the token, checks expiry and the
// secret, deletes the token, marks the email verified and activates the user.
// Any failure leaves the token untouched once tx rolls back.
func (s *Service) ConsumeTx(ctx context.Context, tx database.DBTX, cred Credential) (Consumed, error) {
	repo := s.repos(tx)

	t, err := repo.FindForUpdate(ctx, cred.TokenID, EmailVerification)
	if err != nil {
		return Consumed{}, err
	}
	if !s.now().Before(t.ExpiresAt) {
		return Consumed{}, ErrTokenExpired
	}
	if !secretMatches(s.cfg.HMACKey, cred.Secret, t.HashedSecret) {
		return Consumed{}, ErrInvalidSecret
	}

	email, err := repo.FindEmail(ctx, t.EmailAddressID)
	if err != nil {
		return Consumed{}, err
	}
	if email.IsVerified {
		return Consumed{}, ErrAlreadyVerified
	}

	if err := repo.Delete(ctx, t.ID); err != nil {
		return Consumed{}, err
	}
	if err := repo.MarkEmailVerified(ctx, t.EmailAddressID); err != nil {
		return Consumed{}, err
	}
	if err := repo.ActivateUser(ctx, t.UserID); err != nil {
		return Consumed{}, err
	}

	return Consumed{UserID: t.UserID, EmailAddressID: t.EmailAddressID, Email: email.Email}, nil
}

package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Type is the typ claim separating access from refresh tokens.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// AccessClaims are the domain claims of an access token.
type AccessClaims struct {
	Subject   string
	SessionID string
}

// RefreshClaims are the domain claims of a refresh token. TokenID is the jti
// binding the token to one session generation. ExpiresAt is zero when the
// token carries no exp.
type RefreshClaims struct {
	Subject   string
	SessionID string
	TokenID   string
	ExpiresAt time.Time
}

// Claims is the untyped result of Verify.
type Claims struct {
	Type      Type
	Subject   string
	SessionID string
	TokenID   string
	ExpiresAt time.Time
}

type wireClaims struct {
	Type      Type   `json:"typ,omitempty"`
	SessionID string `json:"sid,omitempty"`
	KeyID     string `json:"kid,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the fixed issuer, audience and key id stamped into every token.
type Config struct {
	Issuer   string
	Audience string
	KeyID    string
	// Leeway is added to exp/nbf checks. One second makes exp=t valid through
	// the whole second t.
	Leeway time.Duration
}

// Signer issues and verifies asymmetrically signed JWTs. It is safe for concurrent use.
type Signer struct {
	keys   *KeyPair
	cfg    Config
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Signer)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

func NewSigner(keys *KeyPair, cfg Config, opts ...Option) (*Signer, error) {
	if keys == nil {
		return nil, errors.New("token: key pair is required")
	}
	if cfg.Issuer == "" || cfg.Audience == "" || cfg.KeyID == "" {
		return nil, errors.New("token: issuer, audience and key id are required")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = time.Second
	}

	s := &Signer{keys: keys, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{keys.Method.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

func (s *Signer) SignAccess(c AccessClaims, expiresAt time.Time) (string, error) {
	if c.Subject == "" || c.SessionID == "" {
		return "", errors.New("token: access claims need subject and session id")
	}
	return s.sign(wireClaims{
		Type:             TypeAccess,
		SessionID:        c.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: c.Subject},
	}, expiresAt)
}

func (s *Signer) SignRefresh(c RefreshClaims, expiresAt time.Time) (string, error) {
	if c.Subject == "" || c.SessionID == "" || c.TokenID == "" {
		return "", errors.New("token: refresh claims need subject, session id and token id")
	}
	return s.sign(wireClaims{
		Type:             TypeRefresh,
		SessionID:        c.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: c.Subject, ID: c.TokenID},
	}, expiresAt)
}

func (s *Signer) sign(c wireClaims, expiresAt time.Time) (string, error) {
	c.KeyID = s.cfg.KeyID
	c.Issuer = s.cfg.Issuer
	c.Audience = jwt.ClaimStrings{s.cfg.Audience}
	c.IssuedAt = jwt.NewNumericDate(s.now())
	c.NotBefore = jwt.NewNumericDate(time.Unix(0, 0))
	c.ExpiresAt = jwt.NewNumericDate(expiresAt)

	t := jwt.NewWithClaims(s.keys.Method, c)
	t.Header["kid"] = s.cfg.KeyID
	signed, err := t.SignedString(s.keys.private)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, kid, issuer, audience, nbf and exp. Failures are *Error.
func (s *Signer) Verify(raw string) (*Claims, error) {
	var wc wireClaims
	if _, err := s.parser.ParseWithClaims(raw, &wc, s.keyFunc); err != nil {
		return nil, classify(err)
	}

	out := &Claims{
		Type:      wc.Type,
		Subject:   wc.Subject,
		SessionID: wc.SessionID,
		TokenID:   wc.ID,
	}
	if wc.ExpiresAt != nil {
		out.ExpiresAt = wc.ExpiresAt.Time
	}
	return out, nil
}

// VerifyAccess verifies raw and requires typ=access with sub and sid.
func (s *Signer) VerifyAccess(raw string) (AccessClaims, error) {
	c, err := s.Verify(raw)
	if err != nil {
		return AccessClaims{}, err
	}
	if c.Type != TypeAccess || c.Subject == "" || c.SessionID == "" {
		return AccessClaims{}, &Error{Kind: KindClaimsInvalid, cause: errors.New("access token requires typ, sub and sid")}
	}
	return AccessClaims{Subject: c.Subject, SessionID: c.SessionID}, nil
}

// VerifyRefresh verifies raw and requires typ=refresh with jti, sub and sid.
func (s *Signer) VerifyRefresh(raw string) (RefreshClaims, error) {
	c, err := s.Verify(raw)
	if err != nil {
		return RefreshClaims{}, err
	}
	if c.Type != TypeRefresh || c.Subject == "" || c.SessionID == "" || c.TokenID == "" {
		return RefreshClaims{}, &Error{Kind: KindClaimsInvalid, cause: errors.New("refresh token requires typ, jti, sub and sid")}
	}
	return RefreshClaims{
		Subject:   c.Subject,
		SessionID: c.SessionID,
		TokenID:   c.TokenID,
		ExpiresAt: c.ExpiresAt,
	}, nil
}

func (s *Signer) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid != s.cfg.KeyID {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return s.keys.public, nil
}

package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pemPair(t *testing.T, priv any, pub any) ([]byte, []byte) {
	t.Helper()
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}),
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
}

func edKeyPair(t *testing.T) *KeyPair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	privPEM, pubPEM := pemPair(t, priv, pub)
	kp, err := ParseKeyPair(privPEM, pubPEM)
	require.NoError(t, err)
	return kp
}

var testConfig = Config{Issuer: "https://api.example.com", Audience: "https://app.example.com", KeyID: "k1"}

func newTestSigner(t *testing.T, kp *KeyPair, cfg Config, clock *time.Time) *Signer {
	t.Helper()
	s, err := NewSigner(kp, cfg, WithClock(func() time.Time { return *clock }))
	require.NoError(t, err)
	return s
}

func TestRoundTrip(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	s := newTestSigner(t, edKeyPair(t), testConfig, &clock)

	access, err := s.SignAccess(AccessClaims{Subject: "u1", SessionID: "s1"}, clock.Add(15*time.Minute))
	require.NoError(t, err)
	ac, err := s.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, AccessClaims{Subject: "u1", SessionID: "s1"}, ac)

	exp := clock.Add(30 * 24 * time.Hour)
	refresh, err := s.SignRefresh(RefreshClaims{Subject: "u1", SessionID: "s1", TokenID: "j1"}, exp)
	require.NoError(t, err)
	rc, err := s.VerifyRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, "j1", rc.TokenID)
	assert.True(t, exp.Equal(rc.ExpiresAt))
}

func TestExpiryBoundaryIsInclusiveToTheSecond(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	s := newTestSigner(t, edKeyPair(t), testConfig, &clock)
	exp := clock.Add(time.Minute)

	raw, err := s.SignAccess(AccessClaims{Subject: "u1", SessionID: "s1"}, exp)
	require.NoError(t, err)

	for _, at := range []time.Time{exp.Add(-time.Second), exp, exp.Add(999 * time.Millisecond)} {
		clock = at
		_, err := s.Verify(raw)
		assert.NoError(t, err, "at %s", at)
	}

	clock = exp.Add(time.Second)
	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyErrorKinds(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	kp := edKeyPair(t)
	s := newTestSigner(t, kp, testConfig, &clock)
	exp := clock.Add(time.Hour)

	otherKeys := newTestSigner(t, edKeyPair(t), testConfig, &clock)
	forged, err := otherKeys.SignAccess(AccessClaims{Subject: "u1", SessionID: "s1"}, exp)
	require.NoError(t, err)

	otherIssuer := testConfig
	otherIssuer.Issuer = "https://evil.example.com"
	wrongIss, err := newTestSigner(t, kp, otherIssuer, &clock).SignAccess(AccessClaims{Subject: "u1", SessionID: "s1"}, exp)
	require.NoError(t, err)

	otherKid := testConfig
	otherKid.KeyID = "k2"
	wrongKid, err := newTestSigner(t, kp, otherKid, &clock).SignAccess(AccessClaims{Subject: "u1", SessionID: "s1"}, exp)
	require.NoError(t, err)

	refresh, err := s.SignRefresh(RefreshClaims{Subject: "u1", SessionID: "s1", TokenID: "j1"}, exp)
	require.NoError(t, err)

	tests := []struct {
		name   string
		verify func() error
		want   *Error
	}{
		{"garbage", func() error { _, err := s.Verify("not-a-jwt"); return err }, ErrMalformed},
		{"truncated", func() error { _, err := s.Verify(strings.Join(strings.Split(refresh, ".")[:2], ".")); return err }, ErrMalformed},
		{"foreign key", func() error { _, err := s.Verify(forged); return err }, ErrSignatureInvalid},
		{"unknown kid", func() error { _, err := s.Verify(wrongKid); return err }, ErrSignatureInvalid},
		{"wrong issuer", func() error { _, err := s.Verify(wrongIss); return err }, ErrClaimsInvalid},
		{"refresh used as access", func() error { _, err := s.VerifyAccess(refresh); return err }, ErrClaimsInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verify()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var te *Error
			require.ErrorAs(t, err, &te)
			assert.Equal(t, 401, te.ProblemStatus())
		})
	}
}

func TestParseKeyPairRSA(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM, pubPEM := pemPair(t, priv, &priv.PublicKey)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.pem"), privPEM, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.pem"), pubPEM, 0o600))

	kp, err := LoadKeyPair(filepath.Join(dir, "private.pem"), filepath.Join(dir, "public.pem"))
	require.NoError(t, err)
	assert.Equal(t, "RS256", kp.Method.Alg())
}

func TestParseKeyPairRejectsMismatchAndGarbage(t *testing.T) {
	pubA, privA, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pubB, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	privPEM, _ := pemPair(t, privA, pubA)
	_, otherPub := pemPair(t, privA, pubB)

	_, err = ParseKeyPair(privPEM, otherPub)
	assert.Error(t, err)

	_, err = ParseKeyPair([]byte("nope"), []byte("nope"))
	assert.Error(t, err)

	_, err = LoadKeyPair("/does/not/exist.pem", "/does/not/exist.pub")
	assert.Error(t, err)
}

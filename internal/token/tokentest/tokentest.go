// Package tokentest builds throwaway signers for tests.
package tokentest

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/delordemm1/go-auth-sessions/internal/token"
	"github.com/stretchr/testify/require"
)

var Config = token.Config{
	Issuer:   "https://api.example.com",
	Audience: "https://app.example.com",
	KeyID:    "test",
}

// NewSigner returns an EdDSA signer on a fresh key whose clock is now.
func NewSigner(t testing.TB, now func() time.Time) *token.Signer {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	kp, err := token.ParseKeyPair(
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}),
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
	)
	require.NoError(t, err)

	s, err := token.NewSigner(kp, Config, token.WithClock(now))
	require.NoError(t, err)
	return s
}

package password

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testParams keeps argon2 cheap enough for unit tests.
var testParams = Params{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(testParams)
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("Abcd123!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))

	again, err := h.Hash("Abcd123!")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again, "salt must differ per hash")

	ok, err := h.Verify("Abcd123!", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("abcd123!", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	h := newTestHasher(t)

	for _, bad := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$short$a2V5",
	} {
		_, err := h.Verify("whatever", bad)
		assert.Error(t, err, bad)
	}
}

func TestLegacyBcrypt(t *testing.T) {
	h := newTestHasher(t)
	legacy, err := bcrypt.GenerateFromPassword([]byte("Abcd123!"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := h.Verify("Abcd123!", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("nope", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, h.NeedsRehash(string(legacy)))

	current, err := h.Hash("Abcd123!")
	require.NoError(t, err)
	assert.False(t, h.NeedsRehash(current))
}

func TestNewHasherValidatesParams(t *testing.T) {
	_, err := NewHasher(Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	assert.Error(t, err)
	_, err = NewHasher(Params{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32})
	assert.Error(t, err)
}

func TestAuthenticatorDelaysOnlyOnMismatch(t *testing.T) {
	h := newTestHasher(t)
	encoded, err := h.Hash("Abcd123!")
	require.NoError(t, err)

	a := NewAuthenticator(h, 50*time.Millisecond)

	start := time.Now()
	ok, err := a.Verify(context.Background(), encoded, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	ok, err = a.Verify(context.Background(), encoded, "Abcd123!")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenticatorDelayHonoursCancellation(t *testing.T) {
	h := newTestHasher(t)
	encoded, err := h.Hash("Abcd123!")
	require.NoError(t, err)

	a := NewAuthenticator(h, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ok, err := a.Verify(ctx, encoded, "wrong")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAuthenticatorReject(t *testing.T) {
	a := NewAuthenticator(newTestHasher(t), 30*time.Millisecond)

	start := time.Now()
	require.NoError(t, a.Reject(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	assert.NoError(t, NewAuthenticator(newTestHasher(t), 0).Reject(context.Background()))
}

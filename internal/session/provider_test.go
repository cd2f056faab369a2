package session

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/delordemm1/go-auth-sessions/internal/audit"
	"github.com/delordemm1/go-auth-sessions/internal/database"
	"github.com/delordemm1/go-auth-sessions/internal/ratelimit"
	"github.com/delordemm1/go-auth-sessions/internal/token"
	"github.com/delordemm1/go-auth-sessions/internal/token/tokentest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore backs both Repository and audit.Recorder. WithTx serializes units
// of work and restores the previous state when one fails.
type memStore struct {
	mu       sync.Mutex
	users    map[string]bool
	sessions map[string]Session
	events   []audit.Event
}

func newMemStore(users ...string) *memStore {
	s := &memStore{users: map[string]bool{}, sessions: map[string]Session{}}
	for _, u := range users {
		s.users[u] = true
	}
	return s
}

func (s *memStore) WithTx(ctx context.Context, fn database.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, events := maps.Clone(s.sessions), slices.Clone(s.events)
	if err := fn(ctx, nil); err != nil {
		s.sessions, s.events = sessions, events
		return err
	}
	return nil
}

func (s *memStore) LockUser(_ context.Context, userID string) error {
	if !s.users[userID] {
		return ErrUserNotFound
	}
	return nil
}

func (s *memStore) ListActiveIDs(_ context.Context, userID string) ([]string, error) {
	var active []Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && !sess.IsRevoked {
			active = append(active, sess)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].UpdatedAt.Equal(active[j].UpdatedAt) {
			return active[i].ID < active[j].ID
		}
		return active[i].UpdatedAt.Before(active[j].UpdatedAt)
	})
	ids := make([]string, len(active))
	for i, sess := range active {
		ids[i] = sess.ID
	}
	return ids, nil
}

func (s *memStore) Insert(_ context.Context, sess *Session) error {
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *memStore) Revoke(_ context.Context, id string, at time.Time) error {
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.IsRevoked = true
	sess.UpdatedAt = at
	s.sessions[id] = sess
	return nil
}

func (s *memStore) FindByRefreshForUpdate(_ context.Context, id, userID, refreshTokenID string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID || sess.RefreshTokenID != refreshTokenID || sess.IsRevoked {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *memStore) FindActive(_ context.Context, id, userID string, now time.Time) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID || sess.IsRevoked || !sess.ExpiresAt.After(now) {
		return nil, ErrSessionInactive
	}
	return &sess, nil
}

func (s *memStore) Rotate(_ context.Context, id, userID, oldTokenID, newTokenID string, expiresAt, now time.Time) error {
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID || sess.RefreshTokenID != oldTokenID || sess.IsRevoked {
		return ErrNotFound
	}
	sess.RefreshTokenID = newTokenID
	sess.ExpiresAt = expiresAt
	sess.UpdatedAt = now
	s.sessions[id] = sess
	return nil
}

func (s *memStore) Record(_ context.Context, e audit.Event) error {
	s.events = append(s.events, e)
	return nil
}

func (s *memStore) active(userID string) []string {
	ids, _ := s.ListActiveIDs(context.Background(), userID)
	return ids
}

type fixture struct {
	mgr    *Manager
	store  *memStore
	signer *token.Signer
	mr     *miniredis.Miniredis

	mu  sync.Mutex
	now time.Time
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{store: newMemStore("u1", "u2"), mr: mr, now: time.Now().Truncate(time.Second)}
	f.signer = tokentest.NewSigner(t, f.clock)

	mgr, err := NewManager(Config{
		DB:         f.store,
		Repos:      func(database.DBTX) Repository { return f.store },
		Audit:      func(database.DBTX) audit.Recorder { return f.store },
		Tokens:     f.signer,
		Denylist:   ratelimit.New(rdb),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limit:      limit,
		RefreshTTL: 30 * 24 * time.Hour,
		Now:        f.clock,
	})
	require.NoError(t, err)
	f.mgr = mgr
	return f
}

func (f *fixture) access(t *testing.T, is Issued, userID string) string {
	t.Helper()
	raw, err := f.signer.SignAccess(token.AccessClaims{Subject: userID, SessionID: is.SessionID}, f.clock().Add(15*time.Minute))
	require.NoError(t, err)
	return raw
}

func TestCreateEvictsLeastRecentlyUsed(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	var issued []Issued
	for i := 0; i < 3; i++ {
		is, err := f.mgr.Create(ctx, CreateParams{UserID: "u1", EmailAddressID: "e1"})
		require.NoError(t, err)
		assert.Empty(t, is.Evicted)
		issued = append(issued, is)
		f.advance(time.Second)
	}
	require.Len(t, f.store.active("u1"), 3)

	fourth, err := f.mgr.Create(ctx, CreateParams{UserID: "u1", EmailAddressID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, issued[0].SessionID, fourth.Evicted)

	active := f.store.active("u1")
	assert.Len(t, active, 3)
	assert.NotContains(t, active, issued[0].SessionID)
	assert.Contains(t, active, fourth.SessionID)

	_, err = f.mgr.Authorize(ctx, f.access(t, issued[0], "u1"))
	assert.ErrorIs(t, err, ErrSessionInactive)
}

func TestCreateRefreshedSessionIsNotEvicted(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	first, err := f.mgr.Create(ctx, CreateParams{UserID: "u1"})
	require.NoError(t, err)
	f.advance(time.Second)
	second, err := f.mgr.Create(ctx, CreateParams{UserID: "u1"})
	require.NoError(t, err)
	f.advance(time.Second)

	_, err = f.mgr.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	f.advance(time.Second)

	third, err := f.mgr.Create(ctx, CreateParams{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, second.SessionID, third.Evicted)
}

func TestCreateUnknownUser(t *testing.T) {
	f := newFixture(t, 3)
	_, err := f.mgr.Create(context.Background(), CreateParams{UserID: "nobody"})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, f.store.sessions)
}

func TestConcurrentCreateHonoursLimit(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.mgr.Create(ctx, CreateParams{UserID: "u1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.store.active("u1"), 3)
	assert.Len(t, f.store.sessions, 12)
}

func TestSessionLimitIsPerAccount(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.mgr.Create(ctx, CreateParams{UserID: "u1"})
	require.NoError(t, err)
	other, err := f.mgr.Create(ctx, CreateParams{UserID: "u2"})
	require.NoError(t, err)
	assert.Empty(t, other.Evicted)
	assert.Len(t, f.store.active("u1"), 1)
	assert.Len(t, f.store.active("u2"), 1)
}

func TestRevoke(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	is, err := f.mgr.Create(ctx, CreateParams{UserID: "u1"})
	require.NoError(t, err)
	access := f.access(t, is, "u1")

	p, err := f.mgr.Authorize(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u1", SessionID: is.SessionID}, p)

	require.NoError(t, f.mgr.Revoke(ctx, is.RefreshToken, "10.0.0.1", "curl"))

	assert.True(t, f.store.sessions[is.SessionID].IsRevoked)
	require.Len(t, f.store.events, 1)
	assert.Equal(t, audit.Event{UserID: "u1", Type: audit.LoggedOut, IPAddress: "10.0.0.1", UserAgent: "curl"}, f.store.events[0])

	key := ratelimit.KeyFor(ratelimit.RevokedTokenID, is.RefreshTokenID)
	require.True(t, f.mr.Exists(key))
	ttl := f.mr.TTL(key)
	assert.Greater(t, ttl, 29*24*time.Hour)
	assert.LessOrEqual(t, ttl, 30*24*time.Hour+time.Second)

	_, err = f.mgr.Authorize(ctx, access)
	assert.ErrorIs(t, err, ErrSessionInactive)

	err = f.mgr.Revoke(ctx, is.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = f.mgr.Refresh(ctx, is.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRevokeUnknownSessionWritesNothing(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	raw, err := f.signer.SignRefresh(token.RefreshClaims{Subject: "u1", SessionID: "ghost", TokenID: "j1"}, f.clock().Add(time.Hour))
	require.NoError(t, err)

	err = f.mgr.Revoke(ctx, raw, "", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.store.events)
	assert.False(t, f.mr.Exists(ratelimit.KeyFor(ratelimit.RevokedTokenID, "j1")))
}

func TestRevokeRejectsBadTokens(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	is, err := f.mgr.Create(ctx, CreateParams{UserID: "u1"})
	require.NoError(t, err)

	err = f.mgr.Revoke(ctx, "garbage", "", "")
	assert.ErrorIs(t, err, token.ErrMalformed)

	err = f.mgr.Revoke(ctx, f.access(t, is, "u1"), "", "")
	assert.ErrorIs(t, err, token.ErrClaimsInvalid, "access token must not log out")

	f.advance(31 * 24 * time.Hour)
	err = f.mgr.Revoke(ctx, is.RefreshToken, "", "")
	assert.ErrorIs(t, err, token.ErrExpired)
	assert.False(t, f.store.sessions[is.SessionID].IsRevoked)
}

func TestRefreshRotates(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	is, err := f.mgr.Create(ctx, CreateParams{UserID: "u1"})
	require.NoError(t, err)
	f.advance(time.Minute)

	next, err := f.mgr.Refresh(ctx, is.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, is.SessionID, next.SessionID)
	assert.NotEqual(t, is.RefreshTokenID, next.RefreshTokenID)
	assert.Equal(t, next.RefreshTokenID, f.store.sessions[is.SessionID].RefreshTokenID)
	assert.True(t, f.mr.Exists(ratelimit.KeyFor(ratelimit.RevokedTokenID, is.RefreshTokenID)))

	_, err = f.mgr.Refresh(ctx, is.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// Rotation is enforced by the row even if the denylist entry is gone.
	f.mr.FlushAll()
	_, err = f.mgr.Refresh(ctx, is.RefreshToken)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.mgr.Refresh(ctx, next.RefreshToken)
	assert.NoError(t, err)
}

func TestDenylistOutageFailsClosed(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	is, err := f.mgr.Create(ctx, CreateParams{UserID: "u1"})
	require.NoError(t, err)

	f.mr.Close()
	_, err = f.mgr.Refresh(ctx, is.RefreshToken)
	assert.ErrorIs(t, err, ratelimit.ErrUnavailable)
	assert.Equal(t, is.RefreshTokenID, f.store.sessions[is.SessionID].RefreshTokenID)
}

package password

import (
	"context"
	"time"
)

// DefaultMismatchDelay is applied before reporting a wrong password.
const DefaultMismatchDelay = time.Second

// Authenticator verifies passwords and pads every mismatch with a fixed delay,
// so a wrong password costs the caller the same as an unknown account and
// brute force is throttled per request.
type Authenticator struct {
	hasher *Hasher
	delay  time.Duration
}

func NewAuthenticator(h *Hasher, mismatchDelay time.Duration) *Authenticator {
	if mismatchDelay < 0 {
		mismatchDelay = 0
	}
	return &Authenticator{hasher: h, delay: mismatchDelay}
}

func (a *Authenticator) Hash(password string) (string, error) {
	return a.hasher.Hash(password)
}

// Verify returns true on match. On mismatch it waits for the configured delay
// (or until ctx is done) and returns false. A corrupt stored hash is returned
// as an error without the delay.
func (a *Authenticator) Verify(ctx context.Context, encoded, password string) (bool, error) {
	ok, err := a.hasher.Verify(password, encoded)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return false, a.Reject(ctx)
}

// Reject waits the mismatch delay. Callers use it on paths that fail before a
// hash is available, such as an unknown account.
func (a *Authenticator) Reject(ctx context.Context) error {
	if a.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(a.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NeedsRehash reports whether encoded should be replaced by a hash with the
// current parameters after a successful login.
func (a *Authenticator) NeedsRehash(encoded string) bool {
	return a.hasher.NeedsRehash(encoded)
}

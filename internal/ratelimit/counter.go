package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimitExceeded is returned by Bump once the ceiling is passed.
var ErrLimitExceeded = errors.New("ratelimit: limit exceeded")

type unavailableError struct{}

func (unavailableError) Error() string   { return "ratelimit: store unavailable" }
func (unavailableError) Transient() bool { return true }

// ErrUnavailable wraps every failure talking to redis.
var ErrUnavailable error = unavailableError{}

// Counter implements resend counters, cool-down flags and the refresh-token
// denylist on top of single-key redis primitives.
type Counter struct {
	redis redis.UniversalClient
}

func New(client redis.UniversalClient) *Counter {
	return &Counter{redis: client}
}

// TryAcquire reports whether no cool-down flag is set for key.
func (c *Counter) TryAcquire(ctx context.Context, key string) (bool, error) {
	n, err := c.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n == 0, nil
}

// Bump increments the counter at key. The TTL is attached only on the 0->1
// increment, so the window starts at the first hit and is not extended by
// later ones. The call that takes the count past ceiling gets ErrLimitExceeded.
func (c *Counter) Bump(ctx context.Context, key string, ttl time.Duration, ceiling int64) (int64, error) {
	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	if count == 1 {
		if err := c.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, unavailable(err)
		}
	}
	if count > ceiling {
		return count, ErrLimitExceeded
	}
	return count, nil
}

// MarkCooldown sets the cool-down flag. Call it only after the gated action happened.
func (c *Counter) MarkCooldown(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.redis.Set(ctx, key, 1, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Deny records a revoked refresh-token id until its natural expiry. Rounds the
// TTL up to whole seconds. A non-positive TTL is a no-op since the token can no
// longer verify anyway.
func (c *Counter) Deny(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	secs := time.Duration(math.Ceil(ttl.Seconds())) * time.Second
	if err := c.redis.Set(ctx, KeyFor(RevokedTokenID, tokenID), 1, secs).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// IsDenied reports whether tokenID is on the denylist.
func (c *Counter) IsDenied(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.redis.Exists(ctx, KeyFor(RevokedTokenID, tokenID)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

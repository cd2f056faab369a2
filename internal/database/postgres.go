package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultRetryDelay = 2 * time.Second

// NewPostgresPool connects to PostgreSQL, retrying up to maxRetries times so
// the service can start before the database container is ready.
func NewPostgresPool(ctx context.Context, databaseURL string, maxRetries int, log *slog.Logger) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database url is empty")
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	delay := defaultRetryDelay
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pool, err := pgxpool.New(ctx, databaseURL)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}

		log.Warn("could not connect to postgres, retrying", "attempt", attempt, "max_attempts", maxRetries, "delay", delay.String(), "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", maxRetries, lastErr)
}

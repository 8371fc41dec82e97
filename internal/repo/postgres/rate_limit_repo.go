package postgres

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RateLimitRepo counts requests per key in fixed windows stored in
// rate_limits. It is used when Redis is not configured.
type RateLimitRepo struct {
	pool     *pgxpool.Pool
	requests int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimitRepo(pool *pgxpool.Pool, requests int, window time.Duration) *RateLimitRepo {
	return &RateLimitRepo{pool: pool, requests: requests, window: window, now: time.Now}
}

func (r *RateLimitRepo) Allow(ctx context.Context, key string) (bool, error) {
	hashedKey := fmt.Sprintf("%x", sha256.Sum256([]byte(key)))

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := r.now()
	windowStart := now.Add(-r.window)

	const q = `
INSERT INTO rate_limits (rl_key, count, window_start, expires_at)
VALUES ($1, 1, $4, $3)
ON CONFLICT (rl_key) DO UPDATE SET
	count = CASE
		WHEN rate_limits.window_start < $2 THEN 1
		ELSE rate_limits.count + 1
	END,
	window_start = CASE
		WHEN rate_limits.window_start < $2 THEN $4
		ELSE rate_limits.window_start
	END,
	expires_at = $3
RETURNING count`

	var count int
	if err := r.pool.QueryRow(ctx, q, hashedKey, windowStart, now.Add(r.window), now).Scan(&count); err != nil {
		return true, fmt.Errorf("rate limit upsert: %w", err)
	}
	return count <= r.requests, nil
}

func (r *RateLimitRepo) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM rate_limits WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

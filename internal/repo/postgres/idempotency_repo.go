package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepo caches responses for Idempotency-Key requests in
// idempotency_keys. Keys arrive already hashed.
type IdempotencyRepo struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepo(pool *pgxpool.Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Claim inserts an empty reservation, taking over rows that have expired.
// A lost claim returns the stored response.
func (r *IdempotencyRepo) Claim(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
INSERT INTO idempotency_keys (key_hash, response, expires_at)
VALUES ($1, '', $2)
ON CONFLICT (key_hash) DO UPDATE SET response = '', expires_at = EXCLUDED.expires_at
WHERE idempotency_keys.expires_at < now()
RETURNING key_hash`
	var claimed string
	err := r.pool.QueryRow(ctx, q, key, time.Now().Add(ttl)).Scan(&claimed)
	if err == nil {
		return true, "", nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, "", err
	}

	var response string
	err = r.pool.QueryRow(ctx,
		`SELECT response FROM idempotency_keys WHERE key_hash = $1`, key).Scan(&response)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return false, response, nil
}

func (r *IdempotencyRepo) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
INSERT INTO idempotency_keys (key_hash, response, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key_hash) DO UPDATE SET response = EXCLUDED.response, expires_at = EXCLUDED.expires_at`
	_, err := r.pool.Exec(ctx, q, key, value, time.Now().Add(ttl))
	return err
}

func (r *IdempotencyRepo) Release(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key_hash = $1`, key)
	return err
}

func (r *IdempotencyRepo) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Package redisstore keeps short-lived request state in Redis: rate limit
// counters and cached idempotent responses.
package redisstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = time.Second

func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	rdb      redis.Cmdable
	requests int
	window   time.Duration
	prefix   string
}

func NewRateLimiter(rdb redis.Cmdable, requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, requests: requests, window: window, prefix: "ratelimit:"}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	k := fmt.Sprintf("%s%x", l.prefix, sha256.Sum256([]byte(key)))
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return true, fmt.Errorf("rate limit incr: %w", err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return true, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return n <= int64(l.requests), nil
}

// IdempotencyStore caches response bodies under already hashed keys.
type IdempotencyStore struct {
	rdb redis.Cmdable
}

func NewIdempotencyStore(rdb redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb}
}

// Claim reserves key with SETNX. A lost claim returns the current value.
func (s *IdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	ok, err := s.rdb.SetNX(ctx, key, "", ttl).Result()
	if err != nil || ok {
		return ok, "", err
	}
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, "", nil
	}
	return false, v, err
}

func (s *IdempotencyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.rdb.Del(ctx, key).Err()
}

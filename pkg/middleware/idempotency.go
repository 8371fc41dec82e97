package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/diagnosis/medcv-review/pkg/logger"
)

const (
	idempotencyTTL = 24 * time.Hour
	// claimTTL bounds how long a crashed request keeps its key reserved.
	claimTTL = time.Minute
)

// IdempotencyStore caches responses under already hashed keys.
type IdempotencyStore interface {
	// Claim atomically reserves key with an empty value. When the key is
	// already taken it returns false and the stored value, which is "" while
	// the first request is still running.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, string, error)
	// Set replaces the reservation with the final response.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error
}

type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Idempotency replays the first successful response of a POST carrying an
// Idempotency-Key header. Keys are scoped by path and Authorization. A
// second request arriving while the first is running gets 409.
func Idempotency(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			sum := sha256.Sum256([]byte(r.URL.Path + "\x00" + r.Header.Get("Authorization") + "\x00" + key))
			hashedKey := fmt.Sprintf("idempotency:%x", sum)

			claimed, existing, err := store.Claim(r.Context(), hashedKey, claimTTL)
			if err != nil {
				logger.WarnContext(r.Context(), "idempotency claim failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				var cached cachedResponse
				if existing == "" || json.Unmarshal([]byte(existing), &cached) != nil {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusConflict)
					w.Write([]byte(`{"status":"fail","error":"A request with this Idempotency-Key is already in progress","code":"CONFLICT"}`))
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(cached.Status)
				w.Write([]byte(cached.Body))
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			ctx := context.WithoutCancel(r.Context())
			if recorder.statusCode >= 200 && recorder.statusCode < 300 {
				raw, _ := json.Marshal(cachedResponse{Status: recorder.statusCode, Body: string(recorder.body)})
				if err := store.Set(ctx, hashedKey, string(raw), idempotencyTTL); err != nil {
					logger.WarnContext(ctx, "idempotency store failed", "error", err)
				}
				return
			}
			if err := store.Release(ctx, hashedKey); err != nil {
				logger.WarnContext(ctx, "idempotency release failed", "error", err)
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(body []byte) (int, error) {
	r.body = append(r.body, body...)
	return r.ResponseWriter.Write(body)
}

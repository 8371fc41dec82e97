package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diagnosis/medcv-review/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	var seen any
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Context().Value(logger.RequestIDKey)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
}

func TestHealth(t *testing.T) {
	h := Health(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecovererReturns500(t *testing.T) {
	h := Logging(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://app.medcv.io"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cv", nil)
	req.Header.Set("Origin", "https://app.medcv.io")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.medcv.io", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, http.StatusTeapot, rec.Code)
}

type memIdem struct {
	mu sync.Mutex
	m  map[string]string
}

func (s *memIdem) Claim(_ context.Context, k string, _ time.Duration) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[k]; ok {
		return false, v, nil
	}
	s.m[k] = ""
	return true, "", nil
}

func (s *memIdem) Release(_ context.Context, k string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, k)
	return nil
}

func (s *memIdem) Set(_ context.Context, k, v string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[k] = v
	return nil
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := &memIdem{m: map[string]string{}}
	calls := 0
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"n":1}`))
	}))

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cv", strings.NewReader("{}"))
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("k1")
	second := send("k1")
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))

	send("")
	send("k2")
	assert.Equal(t, 3, calls)
}

func TestIdempotencyConcurrentDuplicateRejected(t *testing.T) {
	store := &memIdem{m: map[string]string{}}
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"n":1}`))
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cv", strings.NewReader("{}"))
		req.Header.Set("Idempotency-Key", "k1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- send() }()
	<-entered

	dup := send()
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Contains(t, dup.Body.String(), `"code":"CONFLICT"`)

	close(release)
	first := <-done
	assert.Equal(t, http.StatusCreated, first.Code)

	replay := send()
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	store := &memIdem{m: map[string]string{}}
	status := http.StatusBadRequest
	calls := 0
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cv", strings.NewReader("{}"))
		req.Header.Set("Idempotency-Key", "k1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, send())
	assert.Empty(t, store.m)

	status = http.StatusCreated
	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, 2, calls)
}

package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/platform/auth"
	"github.com/diagnosis/medcv-review/internal/platform/mailer"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/diagnosis/medcv-review/internal/repo/memory"
	"github.com/diagnosis/medcv-review/pkg/events"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type testEnv struct {
	clock   *fakeClock
	store   *repo.Store
	mail    *mailer.DevMailer
	bus     *events.LocalBus
	tokens  *auth.TokenService
	hasher  *auth.Hasher
	auth    *AuthService
	cvs     *CVService
	reviews *ReviewService
	admin   *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	tokens, err := auth.NewTokenService("test-secret", 90*24*time.Hour, auth.WithClock(clock.Now))
	require.NoError(t, err)

	e := &testEnv{
		clock:  clock,
		store:  memory.NewStore(),
		mail:   mailer.NewDevMailer(io.Discard),
		bus:    events.NewLocalBus(),
		tokens: tokens,
		hasher: auth.NewHasher(auth.LowCostParams),
	}
	e.auth = NewAuthService(e.store.Users, tokens, e.hasher, e.mail, e.bus, AuthOptions{
		ResetTokenInResponse: true,
		AppBaseURL:           "http://localhost:4000/",
		Now:                  clock.Now,
		Go:                   func(f func()) { f() },
	})
	e.cvs = NewCVService(e.store.CVs, e.store.Users, e.bus, clock.Now)
	e.reviews = NewReviewService(e.store.Reviews, e.store.CVs, e.store.Users, e.bus, clock.Now)
	e.admin = NewAdminService(e.store.CVs, e.store.Reviews)
	return e
}

func (e *testEnv) signUp(t *testing.T, email string) *domain.AuthResult {
	t.Helper()
	res, err := e.auth.SignUp(context.Background(), &domain.SignUpRequest{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       email,
		Password:    "password123",
		PhoneNumber: "07000000000",
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) identity(t *testing.T, token string) *domain.Identity {
	t.Helper()
	id, err := e.auth.Authenticate(context.Background(), token)
	require.NoError(t, err)
	return id
}

// addAdmin stores an admin directly, since sign-up only creates users.
func (e *testEnv) addAdmin(t *testing.T, email string) *domain.Identity {
	t.Helper()
	hash, err := e.hasher.Hash("adminpass1")
	require.NoError(t, err)
	u := &domain.User{
		FirstName:    "Ada",
		LastName:     "Admin",
		Email:        email,
		Role:         domain.RoleAdmin,
		Active:       true,
		PasswordHash: hash,
		CreatedAt:    e.clock.Now(),
		UpdatedAt:    e.clock.Now(),
	}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u.Identity()
}

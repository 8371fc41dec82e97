package service

import (
	"context"
	"testing"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo/memory"
	"github.com/diagnosis/medcv-review/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func authReason(t *testing.T, err error) string {
	t.Helper()
	var aerr *domain.AuthError
	require.ErrorAs(t, err, &aerr)
	return aerr.Reason
}

func TestSignUpIssuesUsableToken(t *testing.T) {
	e := newTestEnv(t)
	var signed []events.UserSignedUpEvent
	require.NoError(t, e.bus.Subscribe(events.UserSignedUp, func(m *events.Message) {
		var ev events.UserSignedUpEvent
		require.NoError(t, m.Decode(&ev))
		signed = append(signed, ev)
	}))

	res := e.signUp(t, " Jane@Example.com ")
	assert.Equal(t, "jane@example.com", res.User.Email)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	assert.NotEmpty(t, res.Token)

	id := e.identity(t, res.Token)
	assert.Equal(t, res.User.ID, id.UserID)
	require.Len(t, signed, 1)
	assert.Equal(t, res.User.ID, signed[0].UserID)

	stored, err := e.store.Users.FindByID(context.Background(), id.UserID)
	require.NoError(t, err)
	assert.Contains(t, stored.PasswordHash, "$argon2id$")
	assert.NotContains(t, stored.PasswordHash, "password123")
}

func TestSignUpDuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "jane@example.com")

	_, err := e.auth.SignUp(context.Background(), &domain.SignUpRequest{
		FirstName: "J", LastName: "D", Email: "JANE@example.com", Password: "password123", PhoneNumber: "1",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.EqualError(t, err, "User with this email already exists")
}

func TestSignUpValidation(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.auth.SignUp(context.Background(), &domain.SignUpRequest{Email: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "jane@example.com")
	ctx := context.Background()

	res, err := e.auth.Login(ctx, &domain.LoginRequest{Email: "JANE@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, wrongPass := e.auth.Login(ctx, &domain.LoginRequest{Email: "jane@example.com", Password: "nope"})
	_, noUser := e.auth.Login(ctx, &domain.LoginRequest{Email: "who@example.com", Password: "nope"})
	assert.ErrorIs(t, wrongPass, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), noUser.Error())

	_, err = e.auth.Login(ctx, &domain.LoginRequest{Email: "jane@example.com"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoginUpgradesBcryptHash(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	legacy, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{FirstName: "Old", LastName: "Timer", Email: "old@example.com", Role: domain.RoleUser, Active: true, PasswordHash: string(legacy)}
	require.NoError(t, e.store.Users.Create(ctx, u))

	_, err = e.auth.Login(ctx, &domain.LoginRequest{Email: "old@example.com", Password: "password123"})
	require.NoError(t, err)

	stored, err := e.store.Users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.PasswordHash, "$argon2id$")
	assert.Nil(t, stored.PasswordChangedAt)

	_, err = e.auth.Login(ctx, &domain.LoginRequest{Email: "old@example.com", Password: "password123"})
	assert.NoError(t, err)
}

func TestAuthenticateReasons(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	res := e.signUp(t, "jane@example.com")

	_, err := e.auth.Authenticate(ctx, "")
	assert.Equal(t, domain.ReasonNotLoggedIn, authReason(t, err))

	_, err = e.auth.Authenticate(ctx, "not-a-jwt")
	assert.Equal(t, domain.ReasonInvalidToken, authReason(t, err))

	e.clock.Advance(91 * 24 * time.Hour)
	_, err = e.auth.Authenticate(ctx, res.Token)
	assert.Equal(t, domain.ReasonExpiredToken, authReason(t, err))
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestAuthenticateDeactivatedUser(t *testing.T) {
	e := newTestEnv(t)
	res := e.signUp(t, "jane@example.com")
	e.store.Users.(*memory.UserRepo).Deactivate(res.User.ID)

	_, err := e.auth.Authenticate(context.Background(), res.Token)
	assert.Equal(t, domain.ReasonUserGone, authReason(t, err))
}

func TestChangePasswordRevokesOlderTokens(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	res := e.signUp(t, "jane@example.com")
	id := e.identity(t, res.Token)

	e.clock.Advance(5 * time.Second)
	_, err := e.auth.ChangePassword(ctx, id, &domain.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newpassword1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.EqualError(t, err, "Current password is incorrect")

	changed, err := e.auth.ChangePassword(ctx, id, &domain.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "newpassword1"})
	require.NoError(t, err)

	_, err = e.auth.Authenticate(ctx, res.Token)
	assert.Equal(t, domain.ReasonPasswordChanged, authReason(t, err))

	e.identity(t, changed.Token)

	_, err = e.auth.Login(ctx, &domain.LoginRequest{Email: "jane@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = e.auth.Login(ctx, &domain.LoginRequest{Email: "jane@example.com", Password: "newpassword1"})
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	old := e.signUp(t, "jane@example.com")

	_, err := e.auth.RequestPasswordReset(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "No user found with this email address")

	req, err := e.auth.RequestPasswordReset(ctx, "JANE@example.com")
	require.NoError(t, err)
	require.Len(t, req.Token, 64)
	assert.Equal(t, e.clock.Now().Add(10*time.Minute), req.ExpiresAt)

	sent := e.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@example.com", sent[0].To)
	assert.Contains(t, sent[0].Text, "http://localhost:4000/api/v1/user/reset-password/"+req.Token)

	stored, err := e.store.Users.FindByID(ctx, old.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, req.Token, stored.PasswordResetLink)

	_, err = e.auth.ResetPassword(ctx, req.Token, "short")
	assert.ErrorIs(t, err, domain.ErrValidation)

	e.clock.Advance(2 * time.Second)
	res, err := e.auth.ResetPassword(ctx, req.Token, "brandnew123")
	require.NoError(t, err)
	e.identity(t, res.Token)

	_, err = e.auth.Authenticate(ctx, old.Token)
	assert.Equal(t, domain.ReasonPasswordChanged, authReason(t, err))

	_, err = e.auth.ResetPassword(ctx, req.Token, "another123")
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)
}

func TestPasswordResetExpires(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.signUp(t, "jane@example.com")

	req, err := e.auth.RequestPasswordReset(ctx, "jane@example.com")
	require.NoError(t, err)

	e.clock.Advance(10*time.Minute + time.Second)
	_, err = e.auth.ResetPassword(ctx, req.Token, "brandnew123")
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)
	assert.EqualError(t, err, "Token is invalid or has expired")

	_, err = e.auth.ResetPassword(ctx, "", "brandnew123")
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)
}

func TestNewResetRequestReplacesOld(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.signUp(t, "jane@example.com")

	first, err := e.auth.RequestPasswordReset(ctx, "jane@example.com")
	require.NoError(t, err)
	second, err := e.auth.RequestPasswordReset(ctx, "jane@example.com")
	require.NoError(t, err)

	_, err = e.auth.ResetPassword(ctx, first.Token, "brandnew123")
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)
	_, err = e.auth.ResetPassword(ctx, second.Token, "brandnew123")
	assert.NoError(t, err)
}

func TestResetTokenHiddenUnlessConfigured(t *testing.T) {
	e := newTestEnv(t)
	e.auth.opts.ResetTokenInResponse = false
	e.signUp(t, "jane@example.com")

	req, err := e.auth.RequestPasswordReset(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Empty(t, req.Token)
	assert.Len(t, e.mail.Sent(), 1)
}

func TestAuthorize(t *testing.T) {
	user := &domain.Identity{UserID: "u", Role: domain.RoleUser}
	admin := &domain.Identity{UserID: "a", Role: domain.RoleAdmin}

	assert.NoError(t, Authorize(admin, domain.RoleAdmin))
	assert.NoError(t, Authorize(user, domain.RoleUser, domain.RoleAdmin))

	err := Authorize(user, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.EqualError(t, err, "The user does not have permission to do this action")

	assert.ErrorIs(t, Authorize(nil, domain.RoleUser), domain.ErrNotAuthenticated)
	assert.ErrorIs(t, Authorize(admin), domain.ErrForbidden)
}

func TestCurrentUser(t *testing.T) {
	e := newTestEnv(t)
	res := e.signUp(t, "jane@example.com")
	info, err := e.auth.CurrentUser(context.Background(), e.identity(t, res.Token))
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, info.ID)

	_, err = e.auth.CurrentUser(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserJSONHidesSecrets(t *testing.T) {
	now := time.Now()
	u := &User{
		ID:                "u1",
		Email:             "a@b.com",
		PasswordHash:      "$argon2id$secret",
		PasswordChangedAt: &now,
		PasswordResetLink: "abc",
		PasswordExpiresAt: &now,
		Role:              RoleUser,
		Active:            true,
	}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	s := string(b)
	assert.NotContains(t, s, "secret")
	assert.NotContains(t, s, "password")
	assert.NotContains(t, s, "active")

	b, err = json.Marshal(u.ToUserInfo())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "argon2id")
	assert.Contains(t, string(b), `"role":"user"`)
}

func TestChangedPasswordAfter(t *testing.T) {
	iat := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}
	assert.False(t, u.ChangedPasswordAfter(iat))

	u.RotatePassword("h", iat)
	assert.False(t, u.ChangedPasswordAfter(iat), "rotation in the same second must not invalidate a token issued then")

	u.RotatePassword("h2", iat.Add(time.Hour))
	assert.True(t, u.ChangedPasswordAfter(iat))
	assert.False(t, u.ChangedPasswordAfter(iat.Add(2*time.Hour)))
}

func TestRotatePasswordClearsReset(t *testing.T) {
	now := time.Now()
	u := &User{}
	u.SetPasswordReset("hash", now.Add(10*time.Minute))
	require.True(t, u.ResetUsable("hash", now))

	u.RotatePassword("new", now)
	assert.Equal(t, "new", u.PasswordHash)
	assert.Empty(t, u.PasswordResetLink)
	assert.Nil(t, u.PasswordExpiresAt)
	require.NotNil(t, u.PasswordChangedAt)
	assert.True(t, u.PasswordChangedAt.Before(now))
}

func TestUpgradeHashLeavesChangedAt(t *testing.T) {
	u := &User{PasswordHash: "$2a$old"}
	u.UpgradeHash("$argon2id$new")
	assert.Equal(t, "$argon2id$new", u.PasswordHash)
	assert.Nil(t, u.PasswordChangedAt)
}

func TestResetUsable(t *testing.T) {
	now := time.Now()
	u := &User{}
	assert.False(t, u.ResetUsable("", now))

	u.SetPasswordReset("hash", now.Add(time.Minute))
	assert.True(t, u.ResetUsable("hash", now))
	assert.False(t, u.ResetUsable("other", now))
	assert.False(t, u.ResetUsable("hash", now.Add(time.Minute)))
}

func TestSignUpValidate(t *testing.T) {
	r := &SignUpRequest{FirstName: " A ", LastName: "B", Email: " A@B.com ", Password: "password123", PhoneNumber: "123"}
	r.Normalize()
	require.NoError(t, r.Validate())
	assert.Equal(t, "a@b.com", r.Email)
	assert.Equal(t, "A", r.FirstName)

	missing := &SignUpRequest{FirstName: "A", Email: "a@b.com", Password: "password123"}
	err := missing.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	short := &SignUpRequest{FirstName: "A", LastName: "B", Email: "bad", Password: "short", PhoneNumber: "1"}
	err = short.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
}

func TestLoginAndPasswordValidate(t *testing.T) {
	assert.ErrorIs(t, (&LoginRequest{Email: "a@b.com"}).Validate(), ErrValidation)
	assert.NoError(t, (&LoginRequest{Email: "a@b.com", Password: "x"}).Validate())

	assert.ErrorIs(t, ValidateNewPassword(""), ErrValidation)
	assert.ErrorIs(t, ValidateNewPassword("1234567"), ErrValidation)
	assert.NoError(t, ValidateNewPassword("12345678"))

	assert.ErrorIs(t, (&ChangePasswordRequest{NewPassword: "12345678"}).Validate(), ErrValidation)
	assert.NoError(t, (&ChangePasswordRequest{CurrentPassword: "old", NewPassword: "12345678"}).Validate())
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)
	_, ok = ParseRole("guest")
	assert.False(t, ok)
}

func TestAuthErrorMatchesNotAuthenticated(t *testing.T) {
	cause := errors.New("boom")
	err := NotAuthenticated(ReasonExpiredToken, cause)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, err, cause)

	var aerr *AuthError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ReasonExpiredToken, aerr.Reason)
}

func TestNewErrorKeepsKind(t *testing.T) {
	err := NewError(ErrNotFound, "CV not found")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "CV not found")
}

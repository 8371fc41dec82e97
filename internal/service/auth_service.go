package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/platform/auth"
	"github.com/diagnosis/medcv-review/internal/platform/mailer"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/diagnosis/medcv-review/internal/utils"
	"github.com/diagnosis/medcv-review/pkg/events"
	"github.com/diagnosis/medcv-review/pkg/logger"
)

const mailTimeout = 15 * time.Second

type AuthOptions struct {
	// ResetTokenInResponse returns the plain reset token to the caller in
	// addition to mailing it.
	ResetTokenInResponse bool
	AppBaseURL           string
	Now                  Clock
	// Go runs fire-and-forget work. Defaults to a new goroutine.
	Go func(func())
}

type AuthService struct {
	users  repo.UserRepository
	tokens *auth.TokenService
	hasher *auth.Hasher
	mail   mailer.Service
	bus    events.Publisher
	opts   AuthOptions
	now    Clock
}

func NewAuthService(
	users repo.UserRepository,
	tokens *auth.TokenService,
	hasher *auth.Hasher,
	mail mailer.Service,
	bus events.Publisher,
	opts AuthOptions,
) *AuthService {
	if opts.Go == nil {
		opts.Go = func(f func()) { go f() }
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		mail:   mail,
		bus:    bus,
		opts:   opts,
		now:    clockOrNow(opts.Now),
	}
}

func (s *AuthService) result(u *domain.User) (*domain.AuthResult, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &domain.AuthResult{User: u.ToUserInfo(), Token: token}, nil
}

func (s *AuthService) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &domain.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		Role:         domain.RoleUser,
		Active:       true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.NewError(domain.ErrDuplicateEmail, "User with this email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.InfoContext(ctx, "User signed up", "user_id", u.ID)
	publish(ctx, s.bus, events.UserSignedUp, events.UserSignedUpEvent{UserID: u.ID, Email: u.Email, CreatedAt: now})

	return s.result(u)
}

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	invalid := domain.NewError(domain.ErrInvalidCredentials, "Invalid email or password")

	u, err := s.users.FindByEmail(ctx, req.Email)
	if isNotFound(err) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Verify(req.Password, u.PasswordHash)
	if err != nil {
		logger.WarnContext(ctx, "Stored password hash unreadable", "user_id", u.ID, "error", err)
		return nil, invalid
	}
	if !ok {
		return nil, invalid
	}

	if s.hasher.NeedsRehash(u.PasswordHash) {
		s.upgradeHash(ctx, u, req.Password)
	}

	return s.result(u)
}

// upgradeHash replaces a legacy hash after a successful login. Failure keeps
// the old hash and does not fail the login.
func (s *AuthService) upgradeHash(ctx context.Context, u *domain.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		logger.WarnContext(ctx, "Password rehash failed", "user_id", u.ID, "error", err)
		return
	}
	u.UpgradeHash(hash)
	u.UpdatedAt = s.now()
	if err := s.users.UpdateCredentials(ctx, u); err != nil {
		logger.WarnContext(ctx, "Password rehash not stored", "user_id", u.ID, "error", err)
		return
	}
	logger.InfoContext(ctx, "Upgraded legacy password hash", "user_id", u.ID)
}

// ResetRequest is the outcome of a password reset request. Token is only
// set when the service is configured to return it.
type ResetRequest struct {
	Token     string    `json:"resetToken,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*ResetRequest, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, domain.NewValidationError("Please provide your email address")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if isNotFound(err) {
		return nil, domain.NewError(domain.ErrNotFound, "No user found with this email address")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	now := s.now()
	rt, err := auth.GenerateResetToken(now)
	if err != nil {
		return nil, err
	}
	u.SetPasswordReset(rt.Hash, rt.ExpiresAt)
	u.UpdatedAt = now
	if err := s.users.UpdateCredentials(ctx, u); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	s.sendResetMail(ctx, u, rt.Plain)
	logger.InfoContext(ctx, "Password reset requested", "user_id", u.ID)

	out := &ResetRequest{ExpiresAt: rt.ExpiresAt}
	if s.opts.ResetTokenInResponse {
		out.Token = rt.Plain
	}
	return out, nil
}

func (s *AuthService) resetURL(token string) string {
	return strings.TrimRight(s.opts.AppBaseURL, "/") + "/api/v1/user/reset-password/" + token
}

func (s *AuthService) sendResetMail(ctx context.Context, u *domain.User, token string) {
	if s.mail == nil {
		return
	}
	msg := mailer.PasswordResetMessage(u.Email, u.FirstName, s.resetURL(token))
	bg := context.WithoutCancel(ctx)
	s.opts.Go(func() {
		ctx, cancel := context.WithTimeout(bg, mailTimeout)
		defer cancel()
		if err := s.mail.Send(ctx, msg); err != nil {
			logger.WarnContext(ctx, "Password reset email not sent", "user_id", u.ID, "error", err)
		}
	})
}

// ResetPassword consumes a reset token. Unknown, used and expired tokens
// all fail the same way.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*domain.AuthResult, error) {
	if err := domain.ValidateNewPassword(newPassword); err != nil {
		return nil, err
	}

	invalid := domain.NewError(domain.ErrTokenInvalidOrExpired, "Token is invalid or has expired")
	if strings.TrimSpace(token) == "" {
		return nil, invalid
	}

	now := s.now()
	u, err := s.users.FindByResetToken(ctx, auth.HashResetToken(token), now)
	if isNotFound(err) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("find reset token: %w", err)
	}

	if err := s.rotate(ctx, u, newPassword, now); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Password reset completed", "user_id", u.ID)
	return s.result(u)
}

func (s *AuthService) ChangePassword(ctx context.Context, id *domain.Identity, req *domain.ChangePasswordRequest) (*domain.AuthResult, error) {
	if id == nil {
		return nil, domain.NotAuthenticated(domain.ReasonNotLoggedIn, nil)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, id.UserID)
	if isNotFound(err) {
		return nil, domain.NotAuthenticated(domain.ReasonUserGone, err)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Verify(req.CurrentPassword, u.PasswordHash)
	if err != nil {
		logger.WarnContext(ctx, "Stored password hash unreadable", "user_id", u.ID, "error", err)
	}
	if !ok {
		return nil, domain.NewError(domain.ErrInvalidCredentials, "Current password is incorrect")
	}

	if err := s.rotate(ctx, u, req.NewPassword, s.now()); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Password changed", "user_id", u.ID)
	return s.result(u)
}

// rotate hashes password and writes it together with the cleared reset fields.
func (s *AuthService) rotate(ctx context.Context, u *domain.User, password string, now time.Time) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	u.RotatePassword(hash, now)
	u.UpdatedAt = now
	if err := s.users.UpdateCredentials(ctx, u); err != nil {
		return fmt.Errorf("update credentials: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to the identity of a live user whose
// password has not changed since the token was issued.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.NotAuthenticated(domain.ReasonNotLoggedIn, nil)
	}

	claims, err := s.tokens.Verify(token)
	if errors.Is(err, auth.ErrExpiredToken) {
		return nil, domain.NotAuthenticated(domain.ReasonExpiredToken, err)
	}
	if err != nil {
		return nil, domain.NotAuthenticated(domain.ReasonInvalidToken, err)
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if isNotFound(err) {
		return nil, domain.NotAuthenticated(domain.ReasonUserGone, err)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if u.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, domain.NotAuthenticated(domain.ReasonPasswordChanged, nil)
	}
	return u.Identity(), nil
}

// Authorize admits id when its role is one of roles.
func (s *AuthService) Authorize(id *domain.Identity, roles ...domain.Role) error {
	return Authorize(id, roles...)
}

func Authorize(id *domain.Identity, roles ...domain.Role) error {
	if id == nil {
		return domain.NotAuthenticated(domain.ReasonNotLoggedIn, nil)
	}
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return domain.NewError(domain.ErrForbidden, "The user does not have permission to do this action")
}

func (s *AuthService) CurrentUser(ctx context.Context, id *domain.Identity) (*domain.UserInfo, error) {
	if id == nil {
		return nil, domain.NotAuthenticated(domain.ReasonNotLoggedIn, nil)
	}
	u, err := s.users.FindByID(ctx, id.UserID)
	if isNotFound(err) {
		return nil, domain.NotAuthenticated(domain.ReasonUserGone, err)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u.ToUserInfo(), nil
}

package domain

import (
	"time"

	"github.com/diagnosis/medcv-review/internal/utils"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

const MinPasswordLength = 8

// passwordChangeSkew backdates PasswordChangedAt so that a token issued in
// the same request cycle is not considered stale.
const passwordChangeSkew = time.Second

type User struct {
	ID          string `json:"_id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Role        Role   `json:"role"`
	Active      bool   `json:"-"`

	PasswordHash      string     `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`

	// PasswordResetLink holds the hex hash of an issued reset token.
	PasswordResetLink string     `json:"-"`
	PasswordExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserInfo is the non-secret projection returned to clients.
type UserInfo struct {
	ID          string `json:"_id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Role        Role   `json:"role"`
}

// UserSummary is embedded in CV listings for reviewers.
type UserSummary struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
	}
}

func (u *User) ToSummary() *UserSummary {
	return &UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

func (u *User) Identity() *Identity {
	return &Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// ChangedPasswordAfter reports whether the password was rotated after a token
// issued at issuedAt. Comparison is at second precision, like JWT iat.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()
}

// RotatePassword installs a new hash, stamps PasswordChangedAt and clears any
// pending reset so the credential write is a single update.
func (u *User) RotatePassword(hash string, now time.Time) {
	changed := now.Add(-passwordChangeSkew)
	u.PasswordHash = hash
	u.PasswordChangedAt = &changed
	u.ClearPasswordReset()
}

// UpgradeHash replaces the stored hash without counting as a password change.
func (u *User) UpgradeHash(hash string) {
	u.PasswordHash = hash
}

func (u *User) SetPasswordReset(hash string, expiresAt time.Time) {
	u.PasswordResetLink = hash
	u.PasswordExpiresAt = &expiresAt
}

func (u *User) ClearPasswordReset() {
	u.PasswordResetLink = ""
	u.PasswordExpiresAt = nil
}

// ResetUsable reports whether a stored reset is still live at now.
func (u *User) ResetUsable(hash string, now time.Time) bool {
	return u.PasswordResetLink != "" && u.PasswordResetLink == hash &&
		u.PasswordExpiresAt != nil && u.PasswordExpiresAt.After(now)
}

type SignUpRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResult is returned by sign-up and login.
type AuthResult struct {
	User  *UserInfo `json:"user"`
	Token string    `json:"token"`
}

func (r *SignUpRequest) Normalize() {
	r.FirstName = utils.NormalizeString(r.FirstName)
	r.LastName = utils.NormalizeString(r.LastName)
	r.Email = utils.NormalizeEmail(r.Email)
	r.PhoneNumber = utils.NormalizeString(r.PhoneNumber)
}

func (r *SignUpRequest) Validate() error {
	if r.FirstName == "" || r.LastName == "" || r.Email == "" || r.Password == "" || r.PhoneNumber == "" {
		return NewValidationError("Please provide all required fields: firstName, lastName, email, password, phoneNumber")
	}
	verr := NewValidationError("")
	if !utils.IsValidEmail(r.Email) {
		verr.Add("email", "Please provide a valid email")
	}
	if len(r.Password) < MinPasswordLength {
		verr.Add("password", "Password must be more than or equal to 8 characters")
	}
	return verr.OrNil()
}

func (r *LoginRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return NewValidationError("Please provide email and password")
	}
	return nil
}

func ValidateNewPassword(password string) error {
	if password == "" {
		return NewValidationError("Please provide a new password")
	}
	if len(password) < MinPasswordLength {
		verr := NewValidationError("")
		verr.Add("password", "Password must be more than or equal to 8 characters")
		return verr
	}
	return nil
}

func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" || r.NewPassword == "" {
		return NewValidationError("Please provide both current password and new password")
	}
	return ValidateNewPassword(r.NewPassword)
}

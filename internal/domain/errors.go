package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrDuplicateEmail        = errors.New("user with this email already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrNotAuthenticated      = errors.New("not authenticated")
	ErrForbidden             = errors.New("the user does not have permission to do this action")
	ErrTokenInvalidOrExpired = errors.New("token is invalid or has expired")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
)

// ValidationError lists field problems. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// Add records a problem for field. The first message per field wins.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) HasProblems() bool {
	return len(e.Fields) > 0
}

// OrNil returns e when it has recorded problems.
func (e *ValidationError) OrNil() error {
	if e.HasProblems() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	msg := strings.Join(parts, "; ")
	if e.Message != "" {
		return e.Message + ": " + msg
	}
	return msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AuthError is a rejected authentication. Reason is safe to show to clients,
// Cause is kept for logs.
type AuthError struct {
	Reason string
	Cause  error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return e.Reason + ": " + e.Cause.Error()
	}
	return e.Reason
}

func (e *AuthError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrNotAuthenticated}
	}
	return []error{ErrNotAuthenticated, e.Cause}
}

const (
	ReasonNotLoggedIn     = "You are not logged in! Please log in to get access."
	ReasonInvalidToken    = "Invalid token. Please log in again."
	ReasonExpiredToken    = "Your token has expired. Please log in again."
	ReasonUserGone        = "The user belonging to this token does no longer exist."
	ReasonPasswordChanged = "User recently changed password! Please log in again."
)

func NotAuthenticated(reason string, cause error) error {
	return &AuthError{Reason: reason, Cause: cause}
}

// Error gives one of the sentinel kinds a client-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func NewError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

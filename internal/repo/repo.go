// Package repo declares the persistence contracts used by the services.
// Implementations return domain.ErrNotFound for missing records and
// domain.ErrDuplicateEmail / domain.ErrConflict for uniqueness violations.
package repo

import (
	"context"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByResetToken returns the active user whose stored reset hash equals
	// hash and whose reset has not expired at now.
	FindByResetToken(ctx context.Context, hash string, now time.Time) (*domain.User, error)
	// UpdateCredentials writes the password hash, password change time and
	// both reset fields in a single update.
	UpdateCredentials(ctx context.Context, u *domain.User) error
	FindSummaries(ctx context.Context, ids []string) (map[string]*domain.UserSummary, error)
}

// CVFilter selects CVs. Zero fields match everything.
type CVFilter struct {
	UserID    string
	Status    domain.CVStatus
	NotStatus domain.CVStatus
}

func (f CVFilter) Match(cv *domain.CV) bool {
	if f.UserID != "" && cv.UserID != f.UserID {
		return false
	}
	if f.Status != "" && cv.Status != f.Status {
		return false
	}
	if f.NotStatus != "" && cv.Status == f.NotStatus {
		return false
	}
	return true
}

type CVRepository interface {
	Create(ctx context.Context, cv *domain.CV) error
	FindByID(ctx context.Context, id string) (*domain.CV, error)
	// UpdateStatus persists status, review id, reviewed time and updated time.
	UpdateStatus(ctx context.Context, cv *domain.CV) error
	// List returns matching CVs, newest first.
	List(ctx context.Context, f CVFilter) ([]*domain.CV, error)
	Count(ctx context.Context, f CVFilter) (int64, error)
}

type ReviewRepository interface {
	// Create fails with domain.ErrConflict when the CV already has a review.
	Create(ctx context.Context, r *domain.Review) error
	FindByID(ctx context.Context, id string) (*domain.Review, error)
	FindByCVID(ctx context.Context, cvID string) (*domain.Review, error)
	Count(ctx context.Context) (int64, error)
	// Delete removes a review. Missing ids are not an error.
	Delete(ctx context.Context, id string) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Users   UserRepository
	CVs     CVRepository
	Reviews ReviewRepository
	Close   func()
}

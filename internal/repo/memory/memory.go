// Package memory keeps every record in process memory. It backs the tests and
// STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/google/uuid"
)

func NewStore() *repo.Store {
	return &repo.Store{
		Users:   NewUserRepo(),
		CVs:     NewCVRepo(),
		Reviews: NewReviewRepo(),
		Close:   func() {},
	}
}

type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byID: map[string]*domain.User{}, byEmail: map[string]string{}}
}

func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	c := *u
	r.byID[u.ID] = &c
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.activeLocked(id)
}

func (r *UserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeLocked(id)
}

func (r *UserRepo) activeLocked(id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok || !u.Active {
		return nil, domain.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepo) FindByResetToken(_ context.Context, hash string, now time.Time) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Active && u.ResetUsable(hash, now) {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepo) UpdateCredentials(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[u.ID]
	if !ok || !cur.Active {
		return domain.ErrNotFound
	}
	cur.PasswordHash = u.PasswordHash
	cur.PasswordChangedAt = u.PasswordChangedAt
	cur.PasswordResetLink = u.PasswordResetLink
	cur.PasswordExpiresAt = u.PasswordExpiresAt
	cur.UpdatedAt = u.UpdatedAt
	return nil
}

func (r *UserRepo) FindSummaries(_ context.Context, ids []string) (map[string]*domain.UserSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*domain.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := r.byID[id]; ok && u.Active {
			out[id] = u.ToSummary()
		}
	}
	return out, nil
}

// Deactivate hides a user from every lookup.
func (r *UserRepo) Deactivate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.Active = false
	}
}

type CVRepo struct {
	mu   sync.RWMutex
	byID map[string]*domain.CV
}

func NewCVRepo() *CVRepo {
	return &CVRepo{byID: map[string]*domain.CV{}}
}

func (r *CVRepo) Create(_ context.Context, cv *domain.CV) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cv.ID == "" {
		cv.ID = uuid.NewString()
	}
	c := *cv
	r.byID[cv.ID] = &c
	return nil
}

func (r *CVRepo) FindByID(_ context.Context, id string) (*domain.CV, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cv, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *cv
	return &c, nil
}

func (r *CVRepo) UpdateStatus(_ context.Context, cv *domain.CV) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[cv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Status = cv.Status
	cur.ReviewID = cv.ReviewID
	cur.ReviewedAt = cv.ReviewedAt
	cur.UpdatedAt = cv.UpdatedAt
	return nil
}

func (r *CVRepo) List(_ context.Context, f repo.CVFilter) ([]*domain.CV, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.CV{}
	for _, cv := range r.byID {
		if f.Match(cv) {
			c := *cv
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *CVRepo) Count(_ context.Context, f repo.CVFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, cv := range r.byID {
		if f.Match(cv) {
			n++
		}
	}
	return n, nil
}

type ReviewRepo struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Review
	byCVID map[string]string
}

func NewReviewRepo() *ReviewRepo {
	return &ReviewRepo{byID: map[string]*domain.Review{}, byCVID: map[string]string{}}
}

func (r *ReviewRepo) Create(_ context.Context, rv *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCVID[rv.CVID]; ok {
		return domain.ErrConflict
	}
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	c := *rv
	r.byID[rv.ID] = &c
	r.byCVID[rv.CVID] = rv.ID
	return nil
}

func (r *ReviewRepo) FindByID(_ context.Context, id string) (*domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rv, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *rv
	return &c, nil
}

func (r *ReviewRepo) FindByCVID(ctx context.Context, cvID string) (*domain.Review, error) {
	r.mu.RLock()
	id, ok := r.byCVID[cvID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *ReviewRepo) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *ReviewRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rv, ok := r.byID[id]; ok {
		delete(r.byCVID, rv.CVID)
		delete(r.byID, id)
	}
	return nil
}

var (
	_ repo.UserRepository   = (*UserRepo)(nil)
	_ repo.CVRepository     = (*CVRepo)(nil)
	_ repo.ReviewRepository = (*ReviewRepo)(nil)
)

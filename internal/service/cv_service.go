package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/diagnosis/medcv-review/pkg/events"
	"github.com/diagnosis/medcv-review/pkg/logger"
)

type CVService struct {
	cvs   repo.CVRepository
	users repo.UserRepository
	bus   events.Publisher
	now   Clock
}

func NewCVService(cvs repo.CVRepository, users repo.UserRepository, bus events.Publisher, now Clock) *CVService {
	return &CVService{cvs: cvs, users: users, bus: bus, now: clockOrNow(now)}
}

// Create stores a pending CV owned by the caller.
func (s *CVService) Create(ctx context.Context, id *domain.Identity, req *domain.CreateCVRequest) (*domain.CV, error) {
	if id == nil {
		return nil, domain.NotAuthenticated(domain.ReasonNotLoggedIn, nil)
	}
	now := s.now()
	req.Normalize()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	cv := domain.NewCV(id.UserID, req, now)
	if err := s.cvs.Create(ctx, cv); err != nil {
		return nil, fmt.Errorf("create cv: %w", err)
	}

	logger.InfoContext(ctx, "CV submitted", "cv_id", cv.ID, "service_level", cv.ServiceLevel)
	publish(ctx, s.bus, events.CVSubmitted, events.CVSubmittedEvent{
		CVID:         cv.ID,
		UserID:       cv.UserID,
		ServiceLevel: string(cv.ServiceLevel),
		SubmittedAt:  now,
	})
	return cv, nil
}

func (s *CVService) ListOwnPending(ctx context.Context, id *domain.Identity) ([]*domain.CV, error) {
	if id == nil {
		return nil, domain.NotAuthenticated(domain.ReasonNotLoggedIn, nil)
	}
	return s.cvs.List(ctx, repo.CVFilter{UserID: id.UserID, NotStatus: domain.CVReviewed})
}

// ListPending returns every CV still awaiting review, with its owner.
func (s *CVService) ListPending(ctx context.Context) ([]*domain.CVWithOwner, error) {
	return s.listWithOwners(ctx, repo.CVFilter{NotStatus: domain.CVReviewed})
}

func (s *CVService) ListAll(ctx context.Context) ([]*domain.CVWithOwner, error) {
	return s.listWithOwners(ctx, repo.CVFilter{})
}

func (s *CVService) ListReviewed(ctx context.Context) ([]*domain.CVWithOwner, error) {
	return s.listWithOwners(ctx, repo.CVFilter{Status: domain.CVReviewed})
}

func (s *CVService) listWithOwners(ctx context.Context, f repo.CVFilter) ([]*domain.CVWithOwner, error) {
	cvs, err := s.cvs.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return withOwners(ctx, s.users, cvs)
}

// Deliver marks a CV as reviewed without attaching a review.
func (s *CVService) Deliver(ctx context.Context, cvID string) (*domain.CV, error) {
	cv, err := s.cvs.FindByID(ctx, cvID)
	if isNotFound(err) {
		return nil, domain.NewError(domain.ErrNotFound, "No CV Found for this ID")
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	cv.MarkReviewed("", now)
	cv.UpdatedAt = now
	if err := s.cvs.UpdateStatus(ctx, cv); err != nil {
		return nil, fmt.Errorf("deliver cv: %w", err)
	}

	logger.InfoContext(ctx, "CV delivered", "cv_id", cv.ID)
	publish(ctx, s.bus, events.CVDelivered, events.CVDeliveredEvent{CVID: cv.ID, UserID: cv.UserID, DeliveredAt: now})
	return cv, nil
}

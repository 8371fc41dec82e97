package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/diagnosis/medcv-review/pkg/events"
	"github.com/diagnosis/medcv-review/pkg/logger"
)

const reviewPostedMessage = "Review posted successfully for pending CV"

type ReviewService struct {
	reviews repo.ReviewRepository
	cvs     repo.CVRepository
	users   repo.UserRepository
	bus     events.Publisher
	now     Clock
}

func NewReviewService(
	reviews repo.ReviewRepository,
	cvs repo.CVRepository,
	users repo.UserRepository,
	bus events.Publisher,
	now Clock,
) *ReviewService {
	return &ReviewService{reviews: reviews, cvs: cvs, users: users, bus: bus, now: clockOrNow(now)}
}

// Post attaches the single review a pending CV may receive, then marks the
// CV reviewed.
func (s *ReviewService) Post(ctx context.Context, reviewer *domain.Identity, cvID string, req *domain.PostReviewRequest) (*domain.PostedReview, error) {
	if reviewer == nil {
		return nil, domain.NotAuthenticated(domain.ReasonNotLoggedIn, nil)
	}

	cv, err := s.cvs.FindByID(ctx, cvID)
	if isNotFound(err) {
		return nil, domain.NewError(domain.ErrNotFound, "CV not found")
	}
	if err != nil {
		return nil, err
	}
	if cv.Status != domain.CVPending {
		return nil, domain.NewValidationError("Can only post reviews for pending CVs")
	}

	conflict := domain.NewError(domain.ErrConflict, "Review already exists for this CV")
	if _, err := s.reviews.FindByCVID(ctx, cv.ID); err == nil {
		return nil, conflict
	} else if !isNotFound(err) {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	rv := domain.NewReview(cv, reviewer.UserID, req, now)
	if rv.GlobalSummary.TotalScore == 0 {
		rv.CalculateOverallScore()
	}
	rv.SetStatus(domain.ReviewCompleted, now)

	if err := s.reviews.Create(ctx, rv); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, conflict
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	cv.MarkReviewed(rv.ID, now)
	cv.UpdatedAt = now
	if err := s.cvs.UpdateStatus(ctx, cv); err != nil {
		// Drop the review so the CV can be reviewed again.
		if derr := s.reviews.Delete(context.WithoutCancel(ctx), rv.ID); derr != nil {
			logger.ErrorContext(ctx, "Orphan review left behind", "review_id", rv.ID, "cv_id", cv.ID, "error", derr)
		}
		return nil, fmt.Errorf("mark cv reviewed: %w", err)
	}

	owner, err := s.users.FindByID(ctx, cv.UserID)
	if err != nil {
		if !isNotFound(err) {
			logger.WarnContext(ctx, "Review owner lookup failed", "cv_id", cv.ID, "error", err)
		}
		owner = nil
	}

	logger.InfoContext(ctx, "Review posted", "review_id", rv.ID, "cv_id", cv.ID)
	publish(ctx, s.bus, events.ReviewPosted, events.ReviewPostedEvent{
		ReviewID:   rv.ID,
		CVID:       cv.ID,
		UserID:     cv.UserID,
		ReviewerID: reviewer.UserID,
		PostedAt:   now,
	})

	return &domain.PostedReview{
		Review:    rv,
		CVDetails: domain.NewCVDetails(cv, owner),
		Message:   reviewPostedMessage,
	}, nil
}

// Get returns a review. Admins see any review, users only their own.
func (s *ReviewService) Get(ctx context.Context, id *domain.Identity, reviewID string) (*domain.Review, error) {
	if id == nil {
		return nil, domain.NotAuthenticated(domain.ReasonNotLoggedIn, nil)
	}
	rv, err := s.reviews.FindByID(ctx, reviewID)
	if isNotFound(err) {
		return nil, domain.NewError(domain.ErrNotFound, "Review not found")
	}
	if err != nil {
		return nil, err
	}
	if id.Role != domain.RoleAdmin && rv.UserID != id.UserID {
		return nil, domain.NewError(domain.ErrForbidden, "You can only access reviews for your own CVs")
	}
	return rv, nil
}

// MyReviews lists the caller's CVs that have been reviewed.
func (s *ReviewService) MyReviews(ctx context.Context, id *domain.Identity) ([]*domain.CV, error) {
	if id == nil {
		return nil, domain.NotAuthenticated(domain.ReasonNotLoggedIn, nil)
	}
	return s.cvs.List(ctx, repo.CVFilter{UserID: id.UserID, Status: domain.CVReviewed})
}

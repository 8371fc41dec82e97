package service

import (
	"context"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
)

type AdminService struct {
	cvs     repo.CVRepository
	reviews repo.ReviewRepository
}

func NewAdminService(cvs repo.CVRepository, reviews repo.ReviewRepository) *AdminService {
	return &AdminService{cvs: cvs, reviews: reviews}
}

func (s *AdminService) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	total, err := s.cvs.Count(ctx, repo.CVFilter{})
	if err != nil {
		return nil, err
	}
	pending, err := s.cvs.Count(ctx, repo.CVFilter{Status: domain.CVPending})
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.DashboardStats{TotalCVs: total, TotalPendingCVs: pending, TotalReviews: reviews}, nil
}

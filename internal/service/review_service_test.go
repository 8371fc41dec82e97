package service

import (
	"context"
	"errors"
	"testing"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/diagnosis/medcv-review/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewRequest() *domain.PostReviewRequest {
	return &domain.PostReviewRequest{
		ReviewType: domain.ServiceStandard,
		Sections: []domain.Section{
			{SectionName: "Experience", SectionScore: 4},
			{SectionName: "Personal statement", SectionScore: 2.5, SectionStatus: domain.SectionNeedsWork},
		},
	}
}

func TestPostReview(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	jane := e.identity(t, e.signUp(t, "jane@example.com").Token)
	admin := e.addAdmin(t, "admin@example.com")
	cv := e.submitCV(t, jane)

	var posted []events.ReviewPostedEvent
	require.NoError(t, e.bus.Subscribe(events.ReviewPosted, func(m *events.Message) {
		var ev events.ReviewPostedEvent
		require.NoError(t, m.Decode(&ev))
		posted = append(posted, ev)
	}))

	out, err := e.reviews.Post(ctx, admin, cv.ID, reviewRequest())
	require.NoError(t, err)
	assert.Equal(t, "Review posted successfully for pending CV", out.Message)
	assert.Equal(t, domain.ReviewCompleted, out.Review.Status)
	assert.NotNil(t, out.Review.CompletedAt)
	assert.Equal(t, 6.5, out.Review.GlobalSummary.TotalScore)
	assert.Equal(t, admin.UserID, out.Review.ReviewerID)
	require.NotNil(t, out.CVDetails.UserInfo)
	assert.Equal(t, "jane@example.com", out.CVDetails.UserInfo.Email)

	stored, err := e.store.CVs.FindByID(ctx, cv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CVReviewed, stored.Status)
	assert.Equal(t, out.Review.ID, stored.ReviewID)

	require.Len(t, posted, 1)
	assert.Equal(t, out.Review.ID, posted[0].ReviewID)
	assert.Equal(t, jane.UserID, posted[0].UserID)

	_, err = e.reviews.Post(ctx, admin, cv.ID, reviewRequest())
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualError(t, err, "Can only post reviews for pending CVs")
}

func TestPostReviewErrors(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	jane := e.identity(t, e.signUp(t, "jane@example.com").Token)
	admin := e.addAdmin(t, "admin@example.com")

	_, err := e.reviews.Post(ctx, admin, "missing", reviewRequest())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "CV not found")

	cv := e.submitCV(t, jane)
	bad := reviewRequest()
	bad.Sections[0].SectionScore = 9
	_, err = e.reviews.Post(ctx, admin, cv.ID, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// A review stored without the CV flipping to reviewed still blocks a second.
	rv := domain.NewReview(cv, admin.UserID, reviewRequest(), e.clock.Now())
	require.NoError(t, e.store.Reviews.Create(ctx, rv))
	_, err = e.reviews.Post(ctx, admin, cv.ID, reviewRequest())
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.EqualError(t, err, "Review already exists for this CV")
}

// flakyCVs fails the next failUpdates calls to UpdateStatus.
type flakyCVs struct {
	repo.CVRepository
	failUpdates int
}

func (f *flakyCVs) UpdateStatus(ctx context.Context, cv *domain.CV) error {
	if f.failUpdates > 0 {
		f.failUpdates--
		return errors.New("db down")
	}
	return f.CVRepository.UpdateStatus(ctx, cv)
}

func TestPostReviewRollsBackWhenCVUpdateFails(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	jane := e.identity(t, e.signUp(t, "jane@example.com").Token)
	admin := e.addAdmin(t, "admin@example.com")
	cv := e.submitCV(t, jane)

	cvs := &flakyCVs{CVRepository: e.store.CVs, failUpdates: 1}
	reviews := NewReviewService(e.store.Reviews, cvs, e.store.Users, e.bus, e.clock.Now)

	_, err := reviews.Post(ctx, admin, cv.ID, reviewRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")

	n, err := e.store.Reviews.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = e.store.Reviews.FindByCVID(ctx, cv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err := reviews.Post(ctx, admin, cv.ID, reviewRequest())
	require.NoError(t, err)

	stored, err := e.store.CVs.FindByID(ctx, cv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CVReviewed, stored.Status)
	assert.Equal(t, out.Review.ID, stored.ReviewID)
}

func TestGetReviewOwnership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	jane := e.identity(t, e.signUp(t, "jane@example.com").Token)
	john := e.identity(t, e.signUp(t, "john@example.com").Token)
	admin := e.addAdmin(t, "admin@example.com")
	cv := e.submitCV(t, jane)

	out, err := e.reviews.Post(ctx, admin, cv.ID, reviewRequest())
	require.NoError(t, err)

	got, err := e.reviews.Get(ctx, jane, out.Review.ID)
	require.NoError(t, err)
	assert.Equal(t, cv.ID, got.CVID)

	_, err = e.reviews.Get(ctx, admin, out.Review.ID)
	assert.NoError(t, err)

	_, err = e.reviews.Get(ctx, john, out.Review.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.EqualError(t, err, "You can only access reviews for your own CVs")

	_, err = e.reviews.Get(ctx, jane, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mine, err := e.reviews.MyReviews(ctx, jane)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, cv.ID, mine[0].ID)

	theirs, err := e.reviews.MyReviews(ctx, john)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestDashboardStats(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	jane := e.identity(t, e.signUp(t, "jane@example.com").Token)
	admin := e.addAdmin(t, "admin@example.com")

	reviewed := e.submitCV(t, jane)
	e.submitCV(t, jane)
	delivered := e.submitCV(t, jane)

	_, err := e.reviews.Post(ctx, admin, reviewed.ID, reviewRequest())
	require.NoError(t, err)
	_, err = e.cvs.Deliver(ctx, delivered.ID)
	require.NoError(t, err)

	stats, err := e.admin.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.DashboardStats{TotalCVs: 3, TotalPendingCVs: 1, TotalReviews: 1}, stats)
}

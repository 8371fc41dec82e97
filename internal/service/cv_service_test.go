package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cvRequest() *domain.CreateCVRequest {
	return &domain.CreateCVRequest{
		FirstName:               "Jane",
		LastName:                "Doe",
		YearOfBirth:             1990,
		YearOfMedicalGraduation: 2014,
		ApplyingForJobRole:      domain.JobRoleMiddleGrade,
		TargetMarkets:           []string{"uk"},
		PreviousExperiences: []domain.PreviousExperience{{
			StartDate:       time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:         time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
			HospitalName:    "St Mary",
			HospitalAddress: "London",
			JobTitle:        "Registrar",
			JobDescription:  strings.Repeat("ward rounds ", 5),
		}},
		ServiceLevel: domain.ServiceStandard,
	}
}

func (e *testEnv) submitCV(t *testing.T, id *domain.Identity) *domain.CV {
	t.Helper()
	cv, err := e.cvs.Create(context.Background(), id, cvRequest())
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	return cv
}

func TestCreateCV(t *testing.T) {
	e := newTestEnv(t)
	id := e.identity(t, e.signUp(t, "jane@example.com").Token)

	cv := e.submitCV(t, id)
	assert.NotEmpty(t, cv.ID)
	assert.Equal(t, id.UserID, cv.UserID)
	assert.Equal(t, domain.CVPending, cv.Status)

	bad := cvRequest()
	bad.TargetMarkets = nil
	_, err := e.cvs.Create(context.Background(), id, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.cvs.Create(context.Background(), nil, cvRequest())
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestCVListingsAndDeliver(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	jane := e.identity(t, e.signUp(t, "jane@example.com").Token)
	john := e.identity(t, e.signUp(t, "john@example.com").Token)

	first := e.submitCV(t, jane)
	second := e.submitCV(t, jane)
	e.submitCV(t, john)

	own, err := e.cvs.ListOwnPending(ctx, jane)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, second.ID, own[0].ID, "newest first")

	pending, err := e.cvs.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.NotNil(t, pending[0].User)
	assert.Equal(t, "john@example.com", pending[0].User.Email)

	delivered, err := e.cvs.Deliver(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CVReviewed, delivered.Status)
	assert.NotNil(t, delivered.ReviewedAt)

	own, err = e.cvs.ListOwnPending(ctx, jane)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	reviewed, err := e.cvs.ListReviewed(ctx)
	require.NoError(t, err)
	require.Len(t, reviewed, 1)
	assert.Equal(t, first.ID, reviewed[0].ID)

	all, err := e.cvs.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = e.cvs.Deliver(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "No CV Found for this ID")
}

package mongodb

import (
	"testing"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestUserDocRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	u := &domain.User{
		ID: "u1", Email: "a@b.com", Role: domain.RoleAdmin, Active: true,
		PasswordHash: "hash", PasswordResetLink: "link", PasswordExpiresAt: &now,
		CreatedAt: now, UpdatedAt: now,
	}
	raw, err := bson.Marshal(toUserDoc(u))
	require.NoError(t, err)

	var doc userDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.toDomain()
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	require.NotNil(t, got.PasswordExpiresAt)
	assert.True(t, now.Equal(*got.PasswordExpiresAt))
	assert.Nil(t, got.PasswordChangedAt)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "u1", m["_id"])
	assert.Contains(t, m, "password")
	assert.NotContains(t, m, "passwordChangedAt")
}

func TestCVFilter(t *testing.T) {
	assert.Empty(t, cvFilter(repo.CVFilter{}))

	f := cvFilter(repo.CVFilter{UserID: "u1", NotStatus: domain.CVReviewed})
	require.Len(t, f, 2)
	assert.Equal(t, "userId", f[0].Key)
	assert.Equal(t, bson.D{{Key: "$ne", Value: domain.CVReviewed}}, f[1].Value)
}

func TestReviewDocDefaultsSections(t *testing.T) {
	d := &reviewDoc{ID: "r1"}
	assert.NotNil(t, d.toDomain().Sections)
}

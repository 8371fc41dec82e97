package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewNotifierMailsOwner(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	n := NewReviewNotifier(e.store.Users, e.mail, "https://cv.example.com/")
	require.NoError(t, n.Start(e.bus))

	jane := e.identity(t, e.signUp(t, "jane@example.com").Token)
	admin := e.addAdmin(t, "admin@example.com")
	cv := e.submitCV(t, jane)

	out, err := e.reviews.Post(ctx, admin, cv.ID, reviewRequest())
	require.NoError(t, err)

	sent := e.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@example.com", sent[0].To)
	assert.Equal(t, "Your CV review is ready", sent[0].Subject)
	assert.Contains(t, sent[0].Text, "https://cv.example.com/api/v1/review/"+out.Review.ID)
}

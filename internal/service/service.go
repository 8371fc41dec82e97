// Package service holds the business operations behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/diagnosis/medcv-review/pkg/events"
	"github.com/diagnosis/medcv-review/pkg/logger"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// publish sends an event and only logs failures.
func publish(ctx context.Context, bus events.Publisher, subject string, data any) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}

// withOwners attaches owner summaries to each CV. Missing owners stay nil.
func withOwners(ctx context.Context, users repo.UserRepository, cvs []*domain.CV) ([]*domain.CVWithOwner, error) {
	ids := make([]string, 0, len(cvs))
	seen := map[string]bool{}
	for _, cv := range cvs {
		if !seen[cv.UserID] {
			seen[cv.UserID] = true
			ids = append(ids, cv.UserID)
		}
	}
	owners, err := users.FindSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.CVWithOwner, 0, len(cvs))
	for _, cv := range cvs {
		out = append(out, &domain.CVWithOwner{CV: cv, User: owners[cv.UserID]})
	}
	return out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

package service

import (
	"context"
	"strings"

	"github.com/diagnosis/medcv-review/internal/platform/mailer"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/diagnosis/medcv-review/pkg/events"
	"github.com/diagnosis/medcv-review/pkg/logger"
)

const notifierQueue = "review-notifier"

// ReviewNotifier mails CV owners when their review is posted.
type ReviewNotifier struct {
	users      repo.UserRepository
	mail       mailer.Service
	appBaseURL string
}

func NewReviewNotifier(users repo.UserRepository, mail mailer.Service, appBaseURL string) *ReviewNotifier {
	return &ReviewNotifier{users: users, mail: mail, appBaseURL: strings.TrimRight(appBaseURL, "/")}
}

// Start joins the notifier queue group on review.posted.
func (n *ReviewNotifier) Start(sub events.Subscriber) error {
	return sub.QueueSubscribe(events.ReviewPosted, notifierQueue, n.handle)
}

func (n *ReviewNotifier) handle(msg *events.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
	defer cancel()

	var ev events.ReviewPostedEvent
	if err := msg.Decode(&ev); err != nil {
		logger.WarnContext(ctx, "Bad review.posted payload", "event_id", msg.ID, "error", err)
		return
	}
	if err := n.Notify(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Review notification not sent", "review_id", ev.ReviewID, "error", err)
	}
}

func (n *ReviewNotifier) Notify(ctx context.Context, ev events.ReviewPostedEvent) error {
	u, err := n.users.FindByID(ctx, ev.UserID)
	if err != nil {
		return err
	}
	url := n.appBaseURL + "/api/v1/review/" + ev.ReviewID
	if err := n.mail.Send(ctx, mailer.ReviewReadyMessage(u.Email, u.FirstName, url)); err != nil {
		return err
	}
	logger.InfoContext(ctx, "Review notification sent", "review_id", ev.ReviewID, "user_id", u.ID)
	return nil
}

package mailer

import "context"

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Service delivers a single message. Callers treat delivery as fire-and-forget.
type Service interface {
	Send(ctx context.Context, msg Message) error
}

package mailer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/diagnosis/medcv-review/pkg/logger"
)

// DevMailer prints messages instead of delivering them and keeps the last
// ones in memory.
type DevMailer struct {
	out io.Writer

	mu   sync.Mutex
	sent []Message
}

func NewDevMailer(out io.Writer) *DevMailer {
	if out == nil {
		out = os.Stdout
	}
	return &DevMailer{out: out}
}

func (d *DevMailer) Send(ctx context.Context, msg Message) error {
	d.mu.Lock()
	d.sent = append(d.sent, msg)
	d.mu.Unlock()

	logger.InfoContext(ctx, "[DEV MAIL] message", "to", msg.To, "subject", msg.Subject)

	fmt.Fprintf(d.out, "\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 EMAIL (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s\n"+
		"Subject: %s\n"+
		"\n"+
		"%s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		msg.To, msg.Subject, msg.Text)
	return nil
}

// Sent returns a copy of every message handed to Send.
func (d *DevMailer) Sent() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message(nil), d.sent...)
}

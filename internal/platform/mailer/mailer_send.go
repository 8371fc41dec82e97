package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/diagnosis/medcv-review/pkg/logger"
	"github.com/mailersend/mailersend-go"
)

var ErrMailerDisabled = errors.New("mailer disabled (missing MAILERSEND_API_KEY or SMTP_FROM)")

type MailerSend struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	timeout time.Duration
	Enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSend {
	m := &MailerSend{
		Enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
		timeout: 10 * time.Second,
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *MailerSend) Send(ctx context.Context, msg Message) error {
	if !m.Enabled {
		return ErrMailerDisabled
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("empty recipient email")
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	out := m.client.Email.NewMessage()
	out.SetFrom(m.from)
	out.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.To}})
	out.SetSubject(msg.Subject)
	if strings.TrimSpace(msg.Text) != "" {
		out.SetText(msg.Text)
	}
	if strings.TrimSpace(msg.HTML) != "" {
		out.SetHTML(msg.HTML)
	}

	res, err := m.client.Email.Send(ctx, out)
	if err != nil {
		return fmt.Errorf("mailersend send: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	logger.DebugContext(ctx, "mail sent", "provider", "mailersend", "message_id", res.Header.Get("X-Message-Id"))
	return nil
}

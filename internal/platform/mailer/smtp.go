package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"
)

type SMTPMailer struct {
	Host   string
	Port   int
	From   string
	User   string
	Pass   string
	UseTLS bool // false for Mailpit on 1025
}

func NewSMTPMailer(host string, port int, from, user, pass string, useTLS bool) *SMTPMailer {
	return &SMTPMailer{
		Host:   strings.TrimSpace(host),
		Port:   port,
		From:   strings.TrimSpace(from),
		User:   strings.TrimSpace(user),
		Pass:   strings.TrimSpace(pass),
		UseTLS: useTLS,
	}
}

const mimeBoundary = "mixed-boundary"

var headerBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// headerValue keeps user-supplied text on a single header line.
func headerValue(s string) string {
	return headerBreaks.Replace(s)
}

// buildMessage renders msg as a multipart/alternative RFC 822 message.
func (s *SMTPMailer) buildMessage(msg Message) []byte {
	var buf bytes.Buffer
	to := (&mail.Address{Name: msg.ToName, Address: headerValue(msg.To)}).String()
	fmt.Fprintf(&buf, "From: %s\r\n", headerValue(s.From))
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", headerValue(msg.Subject))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&buf, "--%s\r\n", mimeBoundary)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", msg.Text)

	if msg.HTML != "" {
		fmt.Fprintf(&buf, "--%s\r\n", mimeBoundary)
		fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n\r\n")
		fmt.Fprintf(&buf, "%s\r\n\r\n", msg.HTML)
	}

	fmt.Fprintf(&buf, "--%s--\r\n", mimeBoundary)
	return buf.Bytes()
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("empty recipient email")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body := s.buildMessage(msg)
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	// Mailpit on 1025: no auth, no TLS
	if !s.UseTLS && s.User == "" {
		return smtp.SendMail(addr, nil, s.From, []string{to}, body)
	}

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}

	// SendMail upgrades with STARTTLS when the server advertises it.
	err := smtp.SendMail(addr, auth, s.From, []string{to}, body)
	if err == nil || !s.UseTLS {
		return err
	}

	// implicit TLS, e.g. port 465
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.Host})
	if err != nil {
		return fmt.Errorf("smtp tls dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(s.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	return w.Close()
}

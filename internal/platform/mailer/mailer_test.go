package mailer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevMailerRecords(t *testing.T) {
	var out bytes.Buffer
	d := NewDevMailer(&out)

	msg := PasswordResetMessage("a@b.com", "Ann", "http://x/reset/abc")
	require.NoError(t, d.Send(context.Background(), msg))

	sent := d.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@b.com", sent[0].To)
	assert.Contains(t, out.String(), "http://x/reset/abc")
	assert.Contains(t, out.String(), "Subject: Your password reset token (valid for 10 min)")
}

func TestSMTPBuildMessage(t *testing.T) {
	s := NewSMTPMailer(" localhost ", 1025, "noreply@medcv.io", "", "", false)
	assert.Equal(t, "localhost", s.Host)

	raw := string(s.buildMessage(Message{To: "a@b.com", ToName: "Ann", Subject: "Hi", Text: "plain", HTML: "<b>rich</b>"}))
	assert.True(t, strings.HasPrefix(raw, "From: noreply@medcv.io\r\n"))
	assert.Contains(t, raw, "To: \"Ann\" <a@b.com>\r\n")
	assert.Contains(t, raw, "Subject: Hi\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=utf-8\r\n\r\nplain")
	assert.Contains(t, raw, "<b>rich</b>")
	assert.True(t, strings.HasSuffix(raw, "--mixed-boundary--\r\n"))

	textOnly := string(s.buildMessage(Message{To: "a@b.com", Text: "plain"}))
	assert.NotContains(t, textOnly, "text/html")
}

func TestSMTPHeadersStayOnOneLine(t *testing.T) {
	s := NewSMTPMailer("localhost", 1025, "noreply@medcv.io", "", "", false)
	raw := string(s.buildMessage(Message{
		To:      "a@b.com",
		ToName:  "Ann\r\nBcc: victim@example.com",
		Subject: "Hi\r\nX-Injected: 1",
		Text:    "plain",
	}))

	headers, _, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)
	for _, line := range strings.Split(headers, "\r\n") {
		assert.NotRegexp(t, `^(?i)(bcc|x-injected):`, line)
	}
	assert.NotContains(t, headers, "\nBcc")
	assert.Contains(t, headers, "Subject: Hi  X-Injected: 1\r\n")
	assert.Contains(t, headers, "<a@b.com>")
}

func TestSMTPSendRejectsEmptyRecipient(t *testing.T) {
	s := NewSMTPMailer("localhost", 1025, "noreply@medcv.io", "", "", false)
	assert.Error(t, s.Send(context.Background(), Message{Subject: "x"}))
}

func TestMailerSendDisabled(t *testing.T) {
	m := NewMailerSend("", "MedCV", "noreply@medcv.io")
	assert.False(t, m.Enabled)
	assert.ErrorIs(t, m.Send(context.Background(), Message{To: "a@b.com"}), ErrMailerDisabled)
}

func TestReviewReadyEscapesName(t *testing.T) {
	m := ReviewReadyMessage("a@b.com", "<Ann>", "http://x/r/1")
	assert.Contains(t, m.HTML, "&lt;Ann&gt;")
	assert.Contains(t, m.Text, "http://x/r/1")
}

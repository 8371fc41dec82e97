package mailer

import (
	"fmt"
	"html"
)

func PasswordResetMessage(to, name, resetURL string) Message {
	return Message{
		To:      to,
		ToName:  name,
		Subject: "Your password reset token (valid for 10 min)",
		Text: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password to: %s\n"+
			"If you didn't forget your password, please ignore this email!", resetURL),
		HTML: fmt.Sprintf(`<p>Hi %s,</p>
<p>Forgot your password? Submit a PATCH request with your new password to:</p>
<p><a href="%s">%s</a></p>
<p>This link is valid for 10 minutes. If you didn't forget your password, please ignore this email.</p>`,
			html.EscapeString(name), resetURL, resetURL),
	}
}

func ReviewReadyMessage(to, name, reviewURL string) Message {
	return Message{
		To:      to,
		ToName:  name,
		Subject: "Your CV review is ready",
		Text:    fmt.Sprintf("Hi %s,\nyour CV feedback is ready. View it here: %s", name, reviewURL),
		HTML: fmt.Sprintf(`<p>Hi %s,</p>
<p>Your CV feedback is ready.</p>
<p><a href="%s">View your review</a></p>`, html.EscapeString(name), reviewURL),
	}
}

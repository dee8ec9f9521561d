package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// SMTPMailer sends password reset mail. Template rendering stays deliberately
// minimal; the surrounding application owns the real mail templates.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) SendResetEmail(to, resetURL string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = "Password Reset Request"
	e.HTML = []byte(fmt.Sprintf(`
		<p>You requested a password reset. Click the link below to set a new password:</p>
		<a href=%q>%s</a>
		<p>This link will expire in 1 hour.</p>
	`, resetURL, resetURL))

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return e.Send(m.host+":"+m.port, auth)
}
